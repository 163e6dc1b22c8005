package actionLog

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func Test_ActionLogAppendPrefixesLines(t *testing.T) {
	log := NewActionLog(0, zaptest.NewLogger(t))

	log.Append("[connect] abc")
	log.Append("> already prefixed")
	log.Appendf("Sent transaction %s", "sig")
	log.AppendError(errors.New("user rejected the request"))
	log.AppendError(nil)

	assert.Equal(t, []string{
		"> [connect] abc",
		"> already prefixed",
		"> Sent transaction sig",
		"> [error] user rejected the request",
	}, log.Lines())
}

func Test_ActionLogLimit(t *testing.T) {
	log := NewActionLog(3, zaptest.NewLogger(t))
	for i := 0; i < 5; i++ {
		log.Appendf("line %d", i)
	}
	assert.Equal(t, []string{"> line 2", "> line 3", "> line 4"}, log.Lines())
}

func Test_ActionLogEntriesAreCopies(t *testing.T) {
	log := NewActionLog(0, zaptest.NewLogger(t))
	log.Append("one")

	entries := log.Entries()
	require.Len(t, entries, 1)
	entries[0].Line = "mutated"
	assert.Equal(t, "> one", log.Lines()[0])
	assert.False(t, log.Entries()[0].Timestamp.IsZero())
}

func Test_ActionLogConcurrentAppend(t *testing.T) {
	log := NewActionLog(0, zaptest.NewLogger(t))
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			log.Append(fmt.Sprintf("line %d", i))
			_ = log.Lines()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, log.Len())
}
