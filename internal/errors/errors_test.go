package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCode(t *testing.T) {
	cause := LayoutMismatch("sheet \"Counties\" not found")
	wrapped := Wrap(cause, "extraction failed")

	assert.Equal(t, CodeLayoutMismatch, GetCode(wrapped))
	assert.Equal(t, "extraction failed: sheet \"Counties\" not found", wrapped.Error())
	assert.True(t, stderrors.Is(wrapped, cause))
}

func TestWrapPlainErrorIsInternal(t *testing.T) {
	wrapped := Wrapf(fmt.Errorf("boom"), "step %d", 2)

	assert.Equal(t, CodeInternalError, GetCode(wrapped))
	assert.Equal(t, "step 2: boom", wrapped.Error())
	assert.Nil(t, Wrap(nil, "ignored"))
}

func TestGetCodeFindsWrappedAppError(t *testing.T) {
	err := fmt.Errorf("loading: %w", UpstreamUnavailable("GET x returned status 503", nil))

	assert.Equal(t, CodeUpstreamUnavailable, GetCode(err))
	assert.True(t, HasCode(err, CodeUpstreamUnavailable))
	assert.Equal(t, "UNKNOWN", GetCode(fmt.Errorf("plain")))
}

func TestWithCode(t *testing.T) {
	recoded := WithCode(CodeLayoutMismatch, InvalidRequest("bad column"))
	assert.Equal(t, CodeLayoutMismatch, GetCode(recoded))
	assert.Equal(t, "bad column", recoded.Error())

	plain := fmt.Errorf("sheet missing")
	recoded = WithCode(CodeLayoutMismatch, plain)
	assert.Equal(t, CodeLayoutMismatch, GetCode(recoded))
	assert.True(t, stderrors.Is(recoded, plain))

	assert.Nil(t, WithCode(CodeLayoutMismatch, nil))
}

func TestConstructors(t *testing.T) {
	err := UnreadableWorkbook("https://files.test/A2", fmt.Errorf("zip: not a valid zip file"))
	assert.Equal(t, CodeUnreadableWorkbook, err.Code)
	assert.Contains(t, err.Error(), "https://files.test/A2")
	assert.Contains(t, err.Error(), "not a valid zip file")

	assert.Equal(t, `filename "notes.xlsx" has no numeric ordering token`, UnrecognizedFilename("notes.xlsx").Error())
	assert.Equal(t, CodeArchiveEmpty, ArchiveEmpty("empty").Code)
	assert.Equal(t, CodeNoAttachments, NoAttachments("none").Code)
	assert.Equal(t, CodeMalformedMetadata, MalformedMetadata("bad").Code)
}
