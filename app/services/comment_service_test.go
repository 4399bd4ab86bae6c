package services

import (
	"context"
	"errors"
	"testing"

	"blogfeed/app/forms"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddComment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	u1, u2 := f.user(t, "u1"), f.user(t, "u2")
	post := f.post(t, u1, "hello", 1)

	_, err := f.comments.Add(ctx, u1, "u1", post.ID, &forms.CommentForm{Text: "earlier"})
	require.NoError(t, err)
	comment, err := f.comments.Add(ctx, u2, "u1", post.ID, &forms.CommentForm{Text: "nice"})
	require.NoError(t, err)
	assert.Equal(t, post.ID, comment.PostID)
	assert.Equal(t, u2.ID, comment.AuthorID)

	view, err := f.feeds.Post(ctx, nil, "u1", post.ID)
	require.NoError(t, err)
	require.Len(t, view.Comments, 2)
	assert.Equal(t, "nice", view.Comments[1].Text)
}

func TestAddCommentRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	u1, u2 := f.user(t, "u1"), f.user(t, "u2")
	post := f.post(t, u1, "hello", 1)

	_, err := f.comments.Add(ctx, nil, "u1", post.ID, &forms.CommentForm{Text: "anon"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.comments.Add(ctx, u2, "u2", post.ID, &forms.CommentForm{Text: "wrong author"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.comments.Add(ctx, u2, "u1", post.ID, &forms.CommentForm{Text: " "})
	var verr *forms.ValidationError
	assert.True(t, errors.As(err, &verr))

	count, err := f.store.Comments.CountByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
