package whatsapp

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type batchCollector struct {
	mu      sync.Mutex
	batches [][]Fragment
	signal  chan struct{}

	started chan struct{} // closed on first drain entry, if set
	release chan struct{} // drain blocks here, if set
}

func newBatchCollector() *batchCollector {
	return &batchCollector{signal: make(chan struct{}, 16)}
}

func (c *batchCollector) drain(_ string, fragments []Fragment) {
	if c.started != nil {
		select {
		case <-c.started:
		default:
			close(c.started)
		}
	}
	if c.release != nil {
		<-c.release
	}

	c.mu.Lock()
	c.batches = append(c.batches, fragments)
	c.mu.Unlock()
	c.signal <- struct{}{}
}

func (c *batchCollector) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.signal:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for drain")
	}
}

func (c *batchCollector) snapshot() [][]Fragment {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]Fragment, len(c.batches))
	copy(out, c.batches)
	return out
}

func TestDebouncer_CoalescesBurstIntoOneBatch(t *testing.T) {
	collector := newBatchCollector()
	d := NewDebouncer(40*time.Millisecond, collector.drain)

	for i := 0; i < 5; i++ {
		d.Append("+100", Fragment{Text: fmt.Sprintf("msg-%d", i)})
		time.Sleep(2 * time.Millisecond)
	}

	collector.wait(t)

	batches := collector.snapshot()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 5)
	for i, frag := range batches[0] {
		require.Equal(t, fmt.Sprintf("msg-%d", i), frag.Text)
	}
}

func TestDebouncer_SeparateWindowsProduceSeparateBatches(t *testing.T) {
	collector := newBatchCollector()
	d := NewDebouncer(20*time.Millisecond, collector.drain)

	d.Append("+100", Fragment{Text: "first"})
	collector.wait(t)

	d.Append("+100", Fragment{Text: "second"})
	collector.wait(t)

	batches := collector.snapshot()
	require.Len(t, batches, 2)
	require.Equal(t, "first", batches[0][0].Text)
	require.Equal(t, "second", batches[1][0].Text)
}

func TestDebouncer_KeysAreIndependent(t *testing.T) {
	collector := newBatchCollector()
	d := NewDebouncer(20*time.Millisecond, collector.drain)

	d.Append("+100", Fragment{Text: "a"})
	d.Append("+200", Fragment{Text: "b"})

	collector.wait(t)
	collector.wait(t)

	batches := collector.snapshot()
	require.Len(t, batches, 2)
	require.Len(t, batches[0], 1)
	require.Len(t, batches[1], 1)
}

// Пока пачка ключа обрабатывается, сработавшее следующее окно не запускает
// второй параллельный drain: фрагменты откладываются и уходят следом.
func TestDebouncer_DeferredWhileInflight(t *testing.T) {
	collector := newBatchCollector()
	collector.started = make(chan struct{})
	collector.release = make(chan struct{})

	d := NewDebouncer(10*time.Millisecond, collector.drain)

	d.Append("+100", Fragment{Text: "first"})

	select {
	case <-collector.started:
	case <-time.After(2 * time.Second):
		t.Fatal("drain never started")
	}

	// первый drain висит в обработке, это сообщение доедет отдельной пачкой
	d.Append("+100", Fragment{Text: "second"})
	time.Sleep(30 * time.Millisecond)
	require.Empty(t, collector.snapshot())

	close(collector.release)
	collector.wait(t)
	collector.wait(t)

	batches := collector.snapshot()
	require.Len(t, batches, 2)
	require.Equal(t, "first", batches[0][0].Text)
	require.Equal(t, "second", batches[1][0].Text)
}

// Симуляция гонки таймеров: устаревший таймер (gen отстал) ничего не сливает,
// фрагменты уезжают только по актуальному.
func TestDebouncer_StaleTimerDoesNotDrain(t *testing.T) {
	collector := newBatchCollector()
	d := NewDebouncer(time.Hour, collector.drain)

	d.Append("+100", Fragment{Text: "hello"})
	d.Append("+100", Fragment{Text: "world"})

	d.fire("+100", 1) // таймер первого Append, уже перебитый вторым
	time.Sleep(20 * time.Millisecond)
	require.Empty(t, collector.snapshot())

	d.fire("+100", 2)
	collector.wait(t)

	batches := collector.snapshot()
	require.Len(t, batches, 1)
	require.Equal(t, []Fragment{{Text: "hello"}, {Text: "world"}}, batches[0])
}

// После отцепления пачки запись по ключу удалена: новый Append заводит
// свежий буфер и ни один фрагмент не теряется.
func TestDebouncer_AppendDuringDrainStartsFreshBuffer(t *testing.T) {
	collector := newBatchCollector()
	collector.started = make(chan struct{})
	collector.release = make(chan struct{})

	d := NewDebouncer(10*time.Millisecond, collector.drain)

	d.Append("+100", Fragment{Text: "old"})

	select {
	case <-collector.started:
	case <-time.After(2 * time.Second):
		t.Fatal("drain never started")
	}
	close(collector.release)
	collector.wait(t)

	d.Append("+100", Fragment{Text: "new"})
	collector.wait(t)

	batches := collector.snapshot()
	require.Len(t, batches, 2)
	require.Equal(t, "old", batches[0][0].Text)
	require.Equal(t, "new", batches[1][0].Text)
}
