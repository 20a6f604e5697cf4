package errors

import (
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestHostErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *HostError
		want string
	}{
		{"section", New(ErrConfigSection, "section 'servo' not found").SetSection("servo"), "[CONFIG_SECTION:servo] section 'servo' not found"},
		{"option", New(ErrConfigOption, "missing").SetSection("servo").SetOption("pin"), "[CONFIG_OPTION:servo.pin] missing"},
		{"interrupted", InterruptedError("draw cat", "user_stop"), "[INTERRUPTED:] draw cat interrupted"},
		{"file", HeaderParseError("cat.h", 12, "bad row"), "[HEADER_PARSE:cat.h:12] bad row"},
		{"wrapped", StorageError("read", io.ErrUnexpectedEOF), "unexpected EOF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); !strings.Contains(got, tt.want) {
				t.Errorf("Error() = %q, want substring %q", got, tt.want)
			}
		})
	}
}

func TestIsFollowsWrapping(t *testing.T) {
	base := ImageFormatError("short")
	wrapped := fmt.Errorf("loading: %w", base)
	if !Is(wrapped, ErrImageFormat) {
		t.Error("Is did not see through fmt wrapping")
	}
	if !IsImage(wrapped) {
		t.Error("IsImage = false")
	}
	if IsConfig(wrapped) {
		t.Error("IsConfig = true for image error")
	}
	if CodeOf(wrapped) != ErrImageFormat || CodeOf(io.EOF) != "" {
		t.Error("CodeOf mismatch")
	}
	if Is(io.EOF, ErrImageFormat) {
		t.Error("Is matched a foreign error")
	}
}

func TestSetContext(t *testing.T) {
	err := ImageRangeError(5, 3)
	if err.Context["index"] != 5 || err.Context["count"] != 3 {
		t.Errorf("context = %v", err.Context)
	}
}
