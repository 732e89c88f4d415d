package whatsapp

import (
	"log"
	"sync"
	"time"
)

// DrainFunc получает слитую пачку фрагментов. Вызывается в отдельной горутине,
// на один ключ — максимум одна работающая DrainFunc одновременно.
type DrainFunc func(key string, fragments []Fragment)

// Debouncer склеивает очереди быстрых сообщений одного диалога в одну пачку.
// Каждый Append сбрасывает таймер тишины; по его истечении буфер атомарно
// отцепляется, запись по ключу удаляется и пачка уходит в DrainFunc.
//
// Буфер живёт под одним мьютексом, поэтому гонка append/drain решается
// просто: фрагмент либо успел в отцепляемую пачку, либо заводит новый буфер.
// Счётчик gen защищает от устаревшего таймера — если после взвода таймера
// пришли новые фрагменты, сработавший старый таймер ничего не сливает.
type Debouncer struct {
	mu       sync.Mutex
	quiet    time.Duration
	drain    DrainFunc
	buffers  map[string]*buffer
	inflight map[string]bool
	deferred map[string][]Fragment
}

type buffer struct {
	fragments []Fragment
	gen       uint64
	timer     *time.Timer
}

func NewDebouncer(quiet time.Duration, drain DrainFunc) *Debouncer {
	return &Debouncer{
		quiet:    quiet,
		drain:    drain,
		buffers:  make(map[string]*buffer),
		inflight: make(map[string]bool),
		deferred: make(map[string][]Fragment),
	}
}

// Append добавляет фрагмент в буфер ключа и перезаводит таймер тишины.
func (d *Debouncer) Append(key string, frag Fragment) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[key]
	if !ok {
		b = &buffer{}
		d.buffers[key] = b
	}

	b.fragments = append(b.fragments, frag)
	b.gen++
	gen := b.gen

	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(d.quiet, func() { d.fire(key, gen) })
}

func (d *Debouncer) fire(key string, gen uint64) {
	d.mu.Lock()

	b, ok := d.buffers[key]
	if !ok || b.gen != gen {
		// буфер уже слит либо получил свежие фрагменты — сработает новый таймер
		d.mu.Unlock()
		return
	}

	fragments := b.fragments
	delete(d.buffers, key)

	if d.inflight[key] {
		// предыдущая пачка этого ключа ещё в обработке: два параллельных run'а
		// на одном thread'е недопустимы, пачку откладываем до завершения
		d.deferred[key] = append(d.deferred[key], fragments...)
		d.mu.Unlock()
		log.Printf("[debounce] key=%s drain deferred (%d fragments)", key, len(fragments))
		return
	}

	d.inflight[key] = true
	d.mu.Unlock()

	go d.process(key, fragments)
}

func (d *Debouncer) process(key string, fragments []Fragment) {
	for {
		d.drain(key, fragments)

		d.mu.Lock()
		next := d.deferred[key]
		delete(d.deferred, key)
		if len(next) == 0 {
			delete(d.inflight, key)
			d.mu.Unlock()
			return
		}
		d.mu.Unlock()

		fragments = next
	}
}
