/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-throttleq/log"
)

func TestRecorder(t *testing.T) {
	logRecorder := NewRecorder()
	logRecorder.Warn("message1", log.Int("num", 10), log.String("str", "abc"))
	logRecorder.With(log.String("throttle_queue", "sink")).Info("message2")
	logRecorder.WithLevel(log.LevelError).Info("message3")

	require.Len(t, logRecorder.Entries(), 2)

	_, found := logRecorder.FindEntry("message3")
	require.False(t, found)

	logEntry, found := logRecorder.FindEntry("message1")
	require.True(t, found)
	require.Equal(t, log.LevelWarn, logEntry.Level)

	logFieldNum, found := logEntry.FindField("num")
	require.True(t, found)
	require.Equal(t, 10, int(logFieldNum.Int))

	logFieldStr, found := logEntry.FindField("str")
	require.True(t, found)
	require.Equal(t, "abc", string(logFieldStr.Bytes))

	_, found = logEntry.FindField("unknown")
	require.False(t, found)

	logEntry, found = logRecorder.FindEntry("message2")
	require.True(t, found)
	queueField, found := logEntry.FindField("throttle_queue")
	require.True(t, found)
	require.Equal(t, "sink", string(queueField.Bytes))

	infoEntries := logRecorder.FindAllEntriesByFilter(func(e RecordedEntry) bool { return e.Level == log.LevelInfo })
	require.Len(t, infoEntries, 1)

	logRecorder.Reset()
	require.Empty(t, logRecorder.Entries())
}
