package event

import "testing"

// TestTopic tests topic parsing helpers
func TestTopic(t *testing.T) {
	t.Run("segments", func(t *testing.T) {
		segs := TopicDiffAccepted.Segments()
		if len(segs) != 2 || segs[0] != "diff" || segs[1] != "accepted" {
			t.Errorf("unexpected segments %v", segs)
		}
		if Topic("").Segments() != nil {
			t.Error("empty topic must have no segments")
		}
	})

	t.Run("prefix matching respects segment boundaries", func(t *testing.T) {
		if !TopicDiffAccepted.HasPrefix("diff") {
			t.Error("'diff' must prefix 'diff.accepted'")
		}
		if !TopicDiffAccepted.HasPrefix("diff.accepted") {
			t.Error("a topic prefixes itself")
		}
		if Topic("diffuse.accepted").HasPrefix("diff") {
			t.Error("'diff' must not prefix 'diffuse.accepted'")
		}
		if !TopicDiffAccepted.HasPrefix("") {
			t.Error("empty prefix matches everything")
		}
	})

	t.Run("validity", func(t *testing.T) {
		for topic, want := range map[Topic]bool{
			TopicDiffAccepted: true,
			"":                false,
			".leading":        false,
			"trailing.":       false,
			"a..b":            false,
		} {
			if topic.IsValid() != want {
				t.Errorf("IsValid(%q) = %v, want %v", topic, !want, want)
			}
		}
	})
}

// TestBus tests subscribe/publish dispatch
func TestBus(t *testing.T) {
	t.Run("exact subscription", func(t *testing.T) {
		b := NewBus()

		var got []Topic
		b.Subscribe(TopicDiffAccepted, func(topic Topic, payload any) {
			got = append(got, topic)
		})

		b.Publish(TopicDiffAccepted, nil)
		b.Publish(TopicDiffRejected, nil)

		if len(got) != 1 || got[0] != TopicDiffAccepted {
			t.Errorf("unexpected deliveries %v", got)
		}
	})

	t.Run("prefix subscription", func(t *testing.T) {
		b := NewBus()

		count := 0
		b.SubscribePrefix("diff", func(Topic, any) { count++ })

		b.Publish(TopicDiffAccepted, nil)
		b.Publish(TopicDiffRejected, nil)
		b.Publish(TopicFileAccepted, nil)

		if count != 2 {
			t.Errorf("expected 2 deliveries, got %d", count)
		}
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		b := NewBus()

		count := 0
		id := b.Subscribe(TopicDiffAccepted, func(Topic, any) { count++ })
		b.Publish(TopicDiffAccepted, nil)
		b.Unsubscribe(id)
		b.Publish(TopicDiffAccepted, nil)

		if count != 1 {
			t.Errorf("expected 1 delivery, got %d", count)
		}
		if b.SubscriberCount() != 0 {
			t.Errorf("expected no subscribers, got %d", b.SubscriberCount())
		}
	})

	t.Run("panicking handler does not stop others", func(t *testing.T) {
		var recovered any
		b := NewBus(WithPanicHandler(func(topic Topic, v any, stack []byte) {
			recovered = v
		}))

		delivered := false
		b.Subscribe(TopicDiffAccepted, func(Topic, any) { panic("boom") })
		b.Subscribe(TopicDiffAccepted, func(Topic, any) { delivered = true })

		b.Publish(TopicDiffAccepted, nil)

		if recovered != "boom" {
			t.Errorf("expected recovered panic 'boom', got %v", recovered)
		}
		if !delivered {
			t.Error("later subscriber must still run")
		}
	})

	t.Run("payload passthrough", func(t *testing.T) {
		b := NewBus()

		var got any
		b.Subscribe(TopicFileAccepted, func(_ Topic, payload any) { got = payload })
		b.Publish(TopicFileAccepted, 42)

		if got != 42 {
			t.Errorf("expected payload 42, got %v", got)
		}
	})
}
