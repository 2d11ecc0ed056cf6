package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"padim-inspector/internal/domain/entity"
	"padim-inspector/internal/domain/port"
)

// ArtifactRepository хранит распределения и результаты проходов в BlobStore.
type ArtifactRepository struct {
	store BlobStore
	codec Codec
}

// NewArtifactRepository создаёт репозиторий поверх хранилища.
func NewArtifactRepository(store BlobStore, codec Codec) *ArtifactRepository {
	return &ArtifactRepository{store: store, codec: codec}
}

// Save сохраняет распределение под ключом (arch, experiment, modality).
func (r *ArtifactRepository) Save(ctx context.Context, key entity.ArtifactKey, dist *entity.Distribution) error {
	if err := dist.Validate(); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	data, err := r.codec.EncodeDistribution(dist)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return r.store.Put(ctx, key.Name(), data)
}

// Load читает распределение. Ошибки: ErrArtifactNotFound или ErrCorruptArtifact.
func (r *ArtifactRepository) Load(ctx context.Context, key entity.ArtifactKey) (*entity.Distribution, error) {
	data, err := r.store.Get(ctx, key.Name())
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	dist, err := r.codec.DecodeDistribution(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return dist, nil
}

// SaveEvaluation сохраняет карты и оценки прохода двумя отдельными артефактами.
func (r *ArtifactRepository) SaveEvaluation(ctx context.Context, eval *entity.Evaluation) error {
	maps, err := r.codec.EncodeMaps(eval)
	if err != nil {
		return fmt.Errorf("encode maps: %w", err)
	}
	if err := r.store.Put(ctx, eval.Key.MapsName(), maps); err != nil {
		return err
	}
	scores, err := r.codec.EncodeScores(eval)
	if err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}
	return r.store.Put(ctx, eval.Key.ScoresName(), scores)
}

// LoadEvaluation читает сохранённые карты и оценки прохода.
func (r *ArtifactRepository) LoadEvaluation(ctx context.Context, key entity.ArtifactKey) (*entity.Evaluation, error) {
	mapsData, err := r.store.Get(ctx, key.MapsName())
	if err != nil {
		return nil, err
	}
	runID, names, maps, err := r.codec.DecodeMaps(mapsData)
	if err != nil {
		return nil, err
	}
	scoresData, err := r.store.Get(ctx, key.ScoresName())
	if err != nil {
		return nil, err
	}
	_, _, scores, err := r.codec.DecodeScores(scoresData)
	if err != nil {
		return nil, err
	}
	return &entity.Evaluation{RunID: runID, Key: key, Names: names, Maps: maps, Scores: scores}, nil
}

// List возвращает имена сохранённых распределений; пустая modality означает все.
// Карты и оценки проходов в список не попадают.
func (r *ArtifactRepository) List(ctx context.Context, modality string) ([]string, error) {
	prefix := ""
	if modality != "" {
		prefix = modality + "/"
	}
	names, err := r.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	out := names[:0]
	for _, name := range names {
		if !strings.HasSuffix(name, artifactExt) ||
			strings.HasSuffix(name, mapsSuffix) || strings.HasSuffix(name, scoresSuffix) {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

// Delete удаляет распределение вместе с картами и оценками его прохода.
func (r *ArtifactRepository) Delete(ctx context.Context, key entity.ArtifactKey) error {
	var errs []error
	for _, name := range []string{key.Name(), key.MapsName(), key.ScoresName()} {
		if err := r.store.Delete(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

const (
	artifactExt  = ".padim"
	mapsSuffix   = "_maps" + artifactExt
	scoresSuffix = "_scores" + artifactExt
)

var _ port.DistributionRepository = (*ArtifactRepository)(nil)
