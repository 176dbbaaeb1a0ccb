package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetupRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Setup("-", false, false, "loud"))
}

func TestSetupStdoutOnly(t *testing.T) {
	assert.NoError(t, Setup("", false, true, "debug"))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.NoError(t, Setup("-", false, false, ""))
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}

func TestSendToDebugLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(buf)
	log.SetLevel(logrus.DebugLevel)

	l := &SendToDebugLogger{Entry: logrus.NewEntry(log).WithField("queue", "loads")}
	l.Printf("worker %d exited", 3)
	assert.Contains(t, buf.String(), "worker 3 exited")
	assert.Contains(t, buf.String(), "queue=loads")
}
