package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	err := NewAppError(ErrCodeNotFound, "Action not found", "abc")
	assert.Equal(t, "NOT_FOUND: Action not found (abc)", err.Error())
	assert.NotEmpty(t, err.File)
	assert.Positive(t, err.Line)

	wrapped := fmt.Errorf("lookup: %w", err)
	assert.True(t, HasCode(wrapped, ErrCodeNotFound))
	assert.False(t, HasCode(wrapped, ErrCodeDatabase))
	assert.False(t, HasCode(errors.New("plain"), ErrCodeNotFound))

	assert.Equal(t, "VALIDATION_ERROR: bad", NewAppError(ErrCodeValidation, "bad").Error())
}

func TestWrapAppErrorKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapAppError(ErrCodeDatabase, "Failed to open action journal", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "DATABASE_ERROR: Failed to open action journal (disk full)", err.Error())
	assert.True(t, HasCode(err, ErrCodeDatabase))
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger("debug", "json", "discard", ""))
	logger := GetLogger()
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	entry := ComponentLogger("gateway")
	assert.Equal(t, "gateway", entry.Data["component"])

	assert.Error(t, InitLogger("loud", "text", "stdout", ""))
}

func TestIsValidAddress(t *testing.T) {
	assert.True(t, IsValidAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"))
	assert.True(t, IsValidAddress(" 0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266 "))
	assert.False(t, IsValidAddress("0x123"))
	assert.False(t, IsValidAddress(""))
}

func TestIsTxHash(t *testing.T) {
	assert.True(t, IsTxHash("0x88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b"))
	assert.False(t, IsTxHash("0x88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944"))
	assert.False(t, IsTxHash("0xzzdf016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b"))
	assert.False(t, IsTxHash("88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b00"))
}
