// Package ragsearch embeds the hybrid retrieval engine in a Go program.
//
// The client runs dense, BM25 and fused (weighted RRF) retrieval in process.
// Without WithEmbedder it uses a deterministic feature-hashing embedder, so it
// works offline. WithRedis loads the corpus from Redis and persists additions.
//
//	client, _ := ragsearch.New(ctx,
//	    ragsearch.WithDocuments(
//	        ragsearch.Document{Text: "Cats are small domesticated felines."},
//	        ragsearch.Document{Text: "Dogs are loyal companions."},
//	    ),
//	)
//	defer client.Close()
//
//	res, _ := client.Search(ctx, ragsearch.Query{Text: "feline pets", TopK: 3})
//	for _, hit := range res.Hits {
//	    fmt.Println(hit.ID, hit.Score, hit.Text)
//	}
package ragsearch
