package events

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestBusPrefixMatching(t *testing.T) {
	b := New()
	var tasks, all []string
	taskSub := b.Subscribe("tasks.", func(e Event) { tasks = append(tasks, e.Topic) })
	defer b.Unsubscribe(taskSub)
	allSub := b.Subscribe("", func(e Event) { all = append(all, e.Topic) })
	defer b.Unsubscribe(allSub)

	b.Publish(TopicTasksChanged, 1)
	b.Publish(TopicHabitsChanged, 2)

	if len(tasks) != 1 || tasks[0] != TopicTasksChanged {
		t.Fatalf("tasks subscriber got %v", tasks)
	}
	if len(all) != 2 {
		t.Fatalf("catch-all subscriber got %v", all)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	b := New()
	calls := 0
	sub := b.Subscribe("tasks.", func(Event) { calls++ })
	if b.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount() = %d, want 1", b.SubscriberCount())
	}
	b.Unsubscribe(sub)
	b.Unsubscribe(sub)
	b.Unsubscribe(nil)
	b.Publish(TopicTasksChanged, nil)
	if calls != 0 {
		t.Fatalf("handler called %d times after unsubscribe", calls)
	}
	if b.SubscriberCount() != 0 {
		t.Fatalf("SubscriberCount() = %d, want 0", b.SubscriberCount())
	}
}

func TestBusHandlerMayReenter(t *testing.T) {
	b := New()
	var got []string
	b.Subscribe("session.", func(e Event) {
		got = append(got, e.Topic)
		if e.Topic == TopicSessionExpired {
			b.Publish(TopicSessionStarted, nil)
		}
	})
	b.Publish(TopicSessionExpired, nil)
	if len(got) != 2 || got[1] != TopicSessionStarted {
		t.Fatalf("unexpected delivery order %v", got)
	}
}

func TestBusConcurrentPublish(t *testing.T) {
	b := New()
	var n atomic.Int64
	b.Subscribe("", func(Event) { n.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Publish(TopicHabitsChanged, nil)
		}()
	}
	wg.Wait()
	if n.Load() != 50 {
		t.Fatalf("delivered %d events, want 50", n.Load())
	}
}
