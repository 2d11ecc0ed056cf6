// Package padim реализует ядро PaDiM: слияние многомасштабных признаков,
// оценку гауссова распределения в каждой ячейке, расстояние Махаланобиса
// и постобработку карты расстояний в карту аномалий.
//
// Обучение:
//
//	acc := padim.NewAccumulator()
//	for each batch {
//	    emb, _ := padim.Embed(ctx, extractor, batch, index)
//	    _ = acc.Add(emb)
//	}
//	dist, _ := acc.Finalize(ctx, 0.01)
//
// Проверка:
//
//	scorer, _ := padim.NewScorer(ctx, dist)
//	distances, _ := scorer.Score(ctx, emb)
//	maps, scores, _ := post.Process(ctx, distances, batch)
//
// Работа по ячейкам H*W независима и выполняется параллельно.
package padim
