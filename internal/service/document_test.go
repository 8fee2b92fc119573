package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/classroom/internal/model"
)

func TestOrganizedSection(t *testing.T) {
	tests := []struct {
		name string
		req  model.OrganizeDraftRequest
		want string
	}{
		{
			name: "whole reply",
			req:  model.OrganizeDraftRequest{AIName: "GPT-4", Content: "A dragon guards the gate."},
			want: "\n\n---\n### From GPT-4\n\nA dragon guards the gate.",
		},
		{
			name: "annotations",
			req: model.OrganizeDraftRequest{
				AIName:  "Gemini",
				Content: "ignored",
				Annotations: []model.OrganizedAnnotation{
					{SelectedText: "the gate", Label: "DOUBT", Note: "why a gate?"},
					{SelectedText: "dragon", Label: "INSPIRATION"},
					{SelectedText: "guards", Label: "OTHER"},
				},
			},
			want: "\n\n---\n### From Gemini\n" +
				"\n❓ \"the gate\"\n   → why a gate?" +
				"\n💡 \"dragon\"" +
				"\n📌 \"guards\"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OrganizedSection(&tt.req))
		})
	}
}

func TestAppendKnowledge(t *testing.T) {
	assert.Equal(t, "📌 fact\n— Source: GPT-4", AppendKnowledge("", "fact", "GPT-4"))
	assert.Equal(t, "old\n\n📌 fact\n— Source: Qwen", AppendKnowledge("old", "fact", "Qwen"))
}

func TestNotesAndDrafts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.user(t, "pia", model.UserRoleStudent)
	conv := env.conversation(t, u.ID)
	svc := NewDocumentService(env.store, env.recorder)

	note, err := svc.GetNote(ctx, u.ID, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, note.Content)

	note, err = svc.AddKnowledge(ctx, u.ID, conv.ID, &model.AddKnowledgeRequest{Text: "water boils at 100C", Source: "Claude"})
	require.NoError(t, err)
	assert.Equal(t, "📌 water boils at 100C\n— Source: Claude", note.Content)

	_, err = svc.Organize(ctx, u.ID, conv.ID, &model.OrganizeDraftRequest{AIName: "Qwen", Content: "text"})
	require.NoError(t, err)
	draft, err := svc.GetDraft(ctx, u.ID, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "\n\n---\n### From Qwen\n\ntext", draft.Content)

	actions := env.actions(t, u.ID)
	assert.Contains(t, actions, model.ActionNoteAddKnowledge)
	assert.Contains(t, actions, model.ActionDraftOrganize)
}

func TestSnapshotRounds(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.user(t, "quin", model.UserRoleStudent)
	conv := env.conversation(t, u.ID)
	svc := NewDocumentService(env.store, env.recorder)

	_, err := svc.Snapshot(ctx, u.ID, conv.ID)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.PutDraft(ctx, u.ID, conv.ID, "round one")
	require.NoError(t, err)
	first, err := svc.Snapshot(ctx, u.ID, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, first.RoundNumber)

	_, err = svc.PutDraft(ctx, u.ID, conv.ID, "round two")
	require.NoError(t, err)
	second, err := svc.Snapshot(ctx, u.ID, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, second.RoundNumber)

	history, err := svc.History(ctx, u.ID, conv.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "round one", history[0].Content)
}

func TestDocumentsOfForeignConversation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	owner := env.user(t, "rex", model.UserRoleStudent)
	other := env.user(t, "sam", model.UserRoleStudent)
	conv := env.conversation(t, owner.ID)
	svc := NewDocumentService(env.store, env.recorder)

	_, err := svc.GetNote(ctx, other.ID, conv.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.PutDraft(ctx, other.ID, conv.ID, "x")
	assert.ErrorIs(t, err, ErrNotFound)
}
