package browse

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type firedValues struct {
	mu     sync.Mutex
	values []string
}

func (f *firedValues) add(v string) {
	f.mu.Lock()
	f.values = append(f.values, v)
	f.mu.Unlock()
}

func (f *firedValues) get() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.values...)
}

func TestDebouncer_RapidTriggersFireOnceWithLastValue(t *testing.T) {
	var fired firedValues
	d := NewDebouncer(30*time.Millisecond, fired.add)

	for _, v := range []string{"b", "ba", "bat", "batm", "batman"} {
		d.Trigger(v)
		time.Sleep(5 * time.Millisecond)
	}
	assert.True(t, d.Pending())

	assert.Eventually(t, func() bool { return len(fired.get()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, []string{"batman"}, fired.get())
	assert.False(t, d.Pending())
}

func TestDebouncer_CancelSuppressesFire(t *testing.T) {
	var fired firedValues
	d := NewDebouncer(20*time.Millisecond, fired.add)

	d.Trigger("dune")
	d.Cancel()
	time.Sleep(60 * time.Millisecond)

	assert.Empty(t, fired.get())
	assert.False(t, d.Pending())
}

func TestDebouncer_SeparatedTriggersEachFire(t *testing.T) {
	var fired firedValues
	d := NewDebouncer(10*time.Millisecond, fired.add)

	d.Trigger("dune")
	assert.Eventually(t, func() bool { return len(fired.get()) == 1 }, time.Second, 5*time.Millisecond)
	d.Trigger("heat")
	assert.Eventually(t, func() bool { return len(fired.get()) == 2 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"dune", "heat"}, fired.get())
}

func TestDebouncer_DefaultDelay(t *testing.T) {
	d := NewDebouncer(0, func(string) {})
	assert.Equal(t, DefaultDebounce, d.delay)
}
