package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirStore_WriteReadList(t *testing.T) {
	ctx := context.Background()
	s := NewDirStore(t.TempDir())

	require.NoError(t, s.Write(ctx, "incoming/b.pdf", []byte("b")))
	require.NoError(t, s.Write(ctx, "incoming/a.pdf", []byte("a")))
	require.NoError(t, s.Write(ctx, "output/x.json", []byte("{}")))

	got, err := s.Read(ctx, "incoming/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "a", string(got))

	objs, err := s.List(ctx, "incoming/")
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "incoming/a.pdf", objs[0].Key)
	assert.Equal(t, "incoming/b.pdf", objs[1].Key)
}

func TestDirStore_IfAbsentKeepsExisting(t *testing.T) {
	ctx := context.Background()
	s := NewDirStore(t.TempDir())

	require.NoError(t, s.Write(ctx, "k", []byte("first")))
	require.NoError(t, s.Write(ctx, "k", []byte("second"), IfAbsent()))

	got, err := s.Read(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))
}

func TestDirStore_MissingObject(t *testing.T) {
	ctx := context.Background()
	s := NewDirStore(t.TempDir())

	_, err := s.Read(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotExist)
	assert.ErrorIs(t, s.Delete(ctx, "nope"), ErrNotExist)

	objs, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, objs)
}

func TestDirStore_CopyDelete(t *testing.T) {
	ctx := context.Background()
	s := Root{Dir: t.TempDir()}.Bucket("docs")

	require.NoError(t, s.Write(ctx, "incoming/app.pdf", []byte("%PDF")))
	require.NoError(t, s.Copy(ctx, "incoming/app.pdf", "processed/app.pdf"))
	require.NoError(t, s.Delete(ctx, "incoming/app.pdf"))

	_, err := s.Read(ctx, "incoming/app.pdf")
	assert.ErrorIs(t, err, ErrNotExist)
	got, err := s.Read(ctx, "processed/app.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(got))
}
