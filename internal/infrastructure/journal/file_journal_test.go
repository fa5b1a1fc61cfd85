package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"batch_transfer/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(sig string) entity.JournalEntry {
	return entity.JournalEntry{
		RunID:      "run-1",
		ChainID:    entity.SolanaChainID,
		Signature:  sig,
		ExecutedBy: "DELEGATE",
		Items:      []entity.JournalItem{{WalletAddress: "W1", TokenAddress: "MintA"}},
		RecordedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestFileJournal_RecordAndMark(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "journal.jsonl")
	j, err := NewFileJournal(path)
	require.NoError(t, err)

	open, err := j.Unreconciled(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	require.NoError(t, j.Record(ctx, entry("sig-a")))
	require.NoError(t, j.Record(ctx, entry("sig-b")))
	require.NoError(t, j.Record(ctx, entry("sig-c")))

	open, err = j.Unreconciled(ctx)
	require.NoError(t, err)
	require.Len(t, open, 3)
	assert.Equal(t, entry("sig-a"), open[0])

	require.NoError(t, j.MarkReconciled(ctx, []string{"sig-b", "unknown"}))
	require.NoError(t, j.MarkReconciled(ctx, nil))

	open, err = j.Unreconciled(ctx)
	require.NoError(t, err)
	sigs := make([]string, 0, len(open))
	for _, e := range open {
		sigs = append(sigs, e.Signature)
	}
	assert.Equal(t, []string{"sig-a", "sig-c"}, sigs)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileJournal_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := NewFileJournal(path)
	require.NoError(t, err)
	require.NoError(t, j.Record(ctx, entry("sig-a")))
	require.NoError(t, j.MarkReconciled(ctx, []string{"sig-a"}))
	require.NoError(t, j.Record(ctx, entry("sig-b")))

	reopened, err := NewFileJournal(path)
	require.NoError(t, err)
	open, err := reopened.Unreconciled(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "sig-b", open[0].Signature)
}

func TestFileJournal_LaterLinesWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	content := `{"signature":"sig-a","reconciled":false}

{"signature":"sig-b","reconciled":false}
{"signature":"sig-a","reconciled":true}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	j, err := NewFileJournal(path)
	require.NoError(t, err)

	open, err := j.Unreconciled(context.Background())
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "sig-b", open[0].Signature)
}

func TestFileJournal_CorruptLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"signature\":\"sig-a\"}\nnot json\n"), 0o644))
	j, err := NewFileJournal(path)
	require.NoError(t, err)

	_, err = j.Unreconciled(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}
