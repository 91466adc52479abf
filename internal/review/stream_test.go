package review_test

import (
	"context"
	"testing"

	"github.com/smartgrant-oss/app/internal/gateway"
	"github.com/smartgrant-oss/app/internal/review"
	"github.com/smartgrant-oss/app/internal/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func collectEvents(t *testing.T, orch *review.Orchestrator, req review.CycleRequest) []review.Event {
	t.Helper()
	var events []review.Event
	orch.RunCycleStream(context.Background(), req, func(ev review.Event) {
		events = append(events, ev)
	})
	return events
}

func eventTypes(events []review.Event) []review.EventType {
	types := make([]review.EventType, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func TestRunCycleStreamEventOrder(t *testing.T) {
	completer := &fakeCompleter{}
	orch := review.NewOrchestrator(zaptest.NewLogger(t), completer, &recordingStore{}, nil, newTestRegistry())

	events := collectEvents(t, orch, testRequest())

	// 순차 실행이므로 이벤트 순서는 결정적
	require.Equal(t, []review.EventType{
		review.EventStart,
		review.EventAgentStart, review.EventAgentComplete,
		review.EventAgentStart, review.EventAgentComplete,
		review.EventAgentStart, review.EventAgentComplete,
		review.EventSynthesizerStart,
		review.EventSynthesizerComplete,
		review.EventComplete,
	}, eventTypes(events))

	require.Equal(t, review.RoleReviewerA, events[1].Agent)
	require.Equal(t, review.RoleReviewerB, events[3].Agent)
	require.Equal(t, review.RoleReviewerC, events[5].Agent)
	require.NotEmpty(t, events[2].Content)
	require.NotEmpty(t, events[8].Content)
}

func TestRunCycleStreamReviewerFailureContinues(t *testing.T) {
	completer := &fakeCompleter{
		failFor: map[string]error{
			"test/reviewer-a": gateway.NewUpstreamError("test/reviewer-a", 429, "rate limited", nil),
		},
	}
	store := &recordingStore{}
	orch := review.NewOrchestrator(zaptest.NewLogger(t), completer, store, nil, newTestRegistry())

	events := collectEvents(t, orch, testRequest())

	require.Equal(t, []review.EventType{
		review.EventStart,
		review.EventAgentStart, review.EventAgentError,
		review.EventAgentStart, review.EventAgentComplete,
		review.EventAgentStart, review.EventAgentComplete,
		review.EventSynthesizerStart,
		review.EventSynthesizerComplete,
		review.EventComplete,
	}, eventTypes(events))

	require.Equal(t, review.RoleReviewerA, events[2].Agent)
	require.Contains(t, events[2].Error, "429")
}

func TestRunCycleStreamSynthesizerFailure(t *testing.T) {
	completer := &fakeCompleter{
		failFor: map[string]error{
			"test/synthesizer": gateway.NewUpstreamError("test/synthesizer", 500, "boom", nil),
		},
	}
	orch := review.NewOrchestrator(zaptest.NewLogger(t), completer, &recordingStore{}, nil, newTestRegistry())

	events := collectEvents(t, orch, testRequest())
	types := eventTypes(events)

	require.Contains(t, types, review.EventSynthesizerError)
	require.NotContains(t, types, review.EventSynthesizerComplete)
	// 종합 실패에도 터미널 이벤트는 반드시 도착
	require.Equal(t, review.EventComplete, types[len(types)-1])
}

func TestRunCycleStreamMissingProjectID(t *testing.T) {
	completer := &fakeCompleter{}
	orch := review.NewOrchestrator(zaptest.NewLogger(t), completer, &recordingStore{}, nil, newTestRegistry())

	events := collectEvents(t, orch, review.CycleRequest{})

	require.Len(t, events, 1)
	require.Equal(t, review.EventError, events[0].Type)
	require.NotEmpty(t, events[0].Error)
	require.Empty(t, completer.calls)
}

func TestRunCycleStreamAllReviewersFail(t *testing.T) {
	completer := &fakeCompleter{
		failFor: map[string]error{
			"test/reviewer-a": gateway.NewUpstreamError("test/reviewer-a", 503, "down", nil),
			"test/reviewer-b": gateway.NewUpstreamError("test/reviewer-b", 503, "down", nil),
			"test/reviewer-c": gateway.NewUpstreamError("test/reviewer-c", 503, "down", nil),
		},
	}
	orch := review.NewOrchestrator(zaptest.NewLogger(t), completer, &recordingStore{}, nil, newTestRegistry())

	events := collectEvents(t, orch, testRequest())
	types := eventTypes(events)

	// 전원 실패 시에도 종합은 빈 의견으로 진행되고 스트림은 닫힘
	require.Contains(t, types, review.EventSynthesizerComplete)
	require.Equal(t, review.EventComplete, types[len(types)-1])
}

func TestRunCycleStreamTemplateNameInStartEvent(t *testing.T) {
	completer := &fakeCompleter{}
	templates := &fakeTemplates{
		template: &storage.ReviewTemplate{TemplateID: "tpl-9", Name: "生物医药专项"},
	}
	orch := review.NewOrchestrator(zaptest.NewLogger(t), completer, &recordingStore{}, templates, newTestRegistry())

	req := testRequest()
	req.TemplateID = "tpl-9"
	events := collectEvents(t, orch, req)

	require.Equal(t, review.EventStart, events[0].Type)
	require.Equal(t, "生物医药专项", events[0].Template)
}
