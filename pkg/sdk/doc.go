// Package bookrec embeds the book recommendation pipeline in a Go program.
//
// The client loads a catalog (CSV file or Valkey hashes), embeds queries with
// a caller-supplied Embedder, searches a pre-built Valkey vector index over
// book descriptions and ranks the matches by category and emotional tone.
//
//	client, err := bookrec.New(ctx,
//	    bookrec.WithValkey("localhost:6379", ""),
//	    bookrec.WithCatalogCSV("books_with_emotions.csv"),
//	    bookrec.WithEmbedder(myEmbedder),
//	)
//	defer client.Close()
//
//	res, _ := client.Recommend(ctx, bookrec.Request{
//	    Query: "a story about a haunted house",
//	    Tone:  "Suspenseful",
//	})
//	if res.Rejected != nil {
//	    fmt.Println(res.Rejected.Message)
//	}
//	for _, b := range res.Books {
//	    fmt.Println(b.Title, b.Authors)
//	}
//
// Without an Embedder or Valkey the client still serves Featured and Options,
// and Recommend validates queries but returns no books.
package bookrec
