package formatter

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatIncludesLevelAndFields(t *testing.T) {
	f := NewTextFormatter()
	entry := &logrus.Entry{
		Time:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "fetch failed",
		Data:    logrus.Fields{"phase": "code-update"},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)

	line := string(out)
	assert.Contains(t, line, "WARN")
	assert.Contains(t, line, "phase: code-update")
	assert.Contains(t, line, "fetch failed")
}
