package session

import (
	"testing"
	"time"

	"github.com/wangxuanyi/hireloop/client/internal/model/interview"
)

func turnAt(speaker interview.Speaker, content string) interview.Turn {
	return interview.Turn{Speaker: speaker, Content: content, Timestamp: displayTimestamp(time.Now())}
}

func TestConversationLogPreservesOrder(t *testing.T) {
	l := NewConversationLog()
	l.Append(turnAt(interview.SpeakerInterviewer, "first"))
	l.Append(turnAt(interview.SpeakerCandidate, "second"))
	l.Append(turnAt(interview.SpeakerInterviewer, "third"))

	got := l.Snapshot()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []string{"first", "second", "third"} {
		if got[i].Content != want {
			t.Fatalf("turn %d = %q, want %q", i, got[i].Content, want)
		}
	}
}

func TestConversationLogAppendExchange(t *testing.T) {
	l := NewConversationLog()
	l.AppendExchange(
		turnAt(interview.SpeakerCandidate, "my answer"),
		turnAt(interview.SpeakerInterviewer, "next question"),
	)

	got := l.Snapshot()
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Speaker != interview.SpeakerCandidate || got[1].Speaker != interview.SpeakerInterviewer {
		t.Fatalf("exchange order wrong: %s then %s", got[0].Speaker, got[1].Speaker)
	}
}

func TestConversationLogSnapshotIsIndependent(t *testing.T) {
	l := NewConversationLog()
	l.Append(turnAt(interview.SpeakerInterviewer, "hello"))

	snap := l.Snapshot()
	snap[0].Content = "mutated"
	l.Append(turnAt(interview.SpeakerCandidate, "hi"))

	got := l.Snapshot()
	if got[0].Content != "hello" {
		t.Fatalf("log was mutated through snapshot: %q", got[0].Content)
	}
	if len(snap) != 1 {
		t.Fatalf("snapshot grew with the log: len = %d", len(snap))
	}
}

func TestConversationLogClear(t *testing.T) {
	l := NewConversationLog()
	l.Append(turnAt(interview.SpeakerInterviewer, "hello"))
	l.Clear()
	if l.Len() != 0 {
		t.Fatalf("len after clear = %d", l.Len())
	}
}

func TestDisplayTimestampFormat(t *testing.T) {
	ts := time.Date(2025, 6, 1, 14, 5, 9, 0, time.UTC)
	if got := displayTimestamp(ts); got != "02:05:09 PM" {
		t.Fatalf("displayTimestamp = %q", got)
	}
}
