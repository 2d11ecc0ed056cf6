package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"padim-inspector/internal/domain/entity"
)

func TestArtifactRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range map[string]BlobStore{
		"memory": NewMemoryStore(),
		"local":  NewLocalStore(t.TempDir()),
	} {
		t.Run(name, func(t *testing.T) {
			repo := NewArtifactRepository(store, Codec{Compression: CompressionZSTD})
			key := entity.ArtifactKey{Arch: "resnet18", Experiment: "exp", Modality: "MRI"}
			want := testDistribution(t)

			require.NoError(t, repo.Save(ctx, key, want))
			got, err := repo.Load(ctx, key)
			require.NoError(t, err)
			require.Equal(t, want, got)

			names, err := store.List(ctx, "MRI/")
			require.NoError(t, err)
			require.Equal(t, []string{"MRI/resnet18_exp.padim"}, names)
		})
	}
}

func TestArtifactRepository_Missing(t *testing.T) {
	repo := NewArtifactRepository(NewLocalStore(t.TempDir()), Codec{})
	_, err := repo.Load(context.Background(), entity.ArtifactKey{Arch: "a", Experiment: "b", Modality: "c"})
	require.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestArtifactRepository_Corrupt(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	key := entity.ArtifactKey{Arch: "a", Experiment: "b", Modality: "c"}
	require.NoError(t, store.Put(ctx, key.Name(), []byte("not an artifact at all")))

	repo := NewArtifactRepository(store, Codec{})
	_, err := repo.Load(ctx, key)
	require.ErrorIs(t, err, ErrCorruptArtifact)
}

func TestArtifactRepository_Evaluation(t *testing.T) {
	ctx := context.Background()
	repo := NewArtifactRepository(NewMemoryStore(), Codec{Compression: CompressionLZ4})
	key := entity.ArtifactKey{Arch: "wide_resnet50_2", Experiment: "e", Modality: "RF"}
	maps := entity.NewMaps(1, 2, 2)
	maps.Data[3] = 4
	eval := &entity.Evaluation{RunID: "run", Key: key, Names: []string{"x"}, Maps: maps, Scores: []float64{1}}

	require.NoError(t, repo.SaveEvaluation(ctx, eval))
	got, err := repo.LoadEvaluation(ctx, key)
	require.NoError(t, err)
	require.Equal(t, eval, got)
}

func TestLocalStore_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())

	require.NoError(t, store.Put(ctx, "a/1.padim", []byte{1}))
	require.NoError(t, store.Put(ctx, "b/2.padim", []byte{2}))
	names, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"a/1.padim", "b/2.padim"}, names)

	require.NoError(t, store.Delete(ctx, "a/1.padim"))
	require.NoError(t, store.Delete(ctx, "a/1.padim"))
	_, err = store.Get(ctx, "a/1.padim")
	require.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(t.TempDir() + "/missing")
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestArtifactRepository_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	for name, store := range map[string]BlobStore{
		"memory": NewMemoryStore(),
		"local":  NewLocalStore(t.TempDir()),
	} {
		t.Run(name, func(t *testing.T) {
			repo := NewArtifactRepository(store, Codec{Compression: CompressionLZ4})
			mri := entity.ArtifactKey{Arch: "resnet18", Experiment: "exp", Modality: "MRI"}
			col := entity.ArtifactKey{Arch: "wide_resnet50_2", Experiment: "exp", Modality: "COL"}
			require.NoError(t, repo.Save(ctx, mri, testDistribution(t)))
			require.NoError(t, repo.Save(ctx, col, testDistribution(t)))
			maps := entity.NewMaps(1, 2, 2)
			require.NoError(t, repo.SaveEvaluation(ctx, &entity.Evaluation{
				RunID: "run", Key: mri, Names: []string{"x"}, Maps: maps, Scores: []float64{1},
			}))

			names, err := repo.List(ctx, "MRI")
			require.NoError(t, err)
			require.Equal(t, []string{"MRI/resnet18_exp.padim"}, names)

			names, err = repo.List(ctx, "")
			require.NoError(t, err)
			require.Equal(t, []string{"COL/wide_resnet50_2_exp.padim", "MRI/resnet18_exp.padim"}, names)

			require.NoError(t, repo.Delete(ctx, mri))
			_, err = repo.Load(ctx, mri)
			require.ErrorIs(t, err, ErrArtifactNotFound)
			_, err = repo.LoadEvaluation(ctx, mri)
			require.ErrorIs(t, err, ErrArtifactNotFound)

			rest, err := store.List(ctx, "")
			require.NoError(t, err)
			require.Equal(t, []string{"COL/wide_resnet50_2_exp.padim"}, rest)

			// Повторное удаление не ошибка.
			require.NoError(t, repo.Delete(ctx, mri))
		})
	}
}
