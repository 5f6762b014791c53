// Package client is the Go SDK for the sengd vote ledger API.
//
// Reads are public; casting votes and importing chains need an operator
// token when the daemon runs with an auth secret:
//
//	c, err := client.New("http://localhost:8080",
//	    client.WithBearerToken(os.Getenv("SENG_TOKEN")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	receipt, err := c.CastVote(ctx, "voter-42", "candidate-b", nil)
//	switch {
//	case errors.Is(err, client.ErrDuplicate):
//	    // this voter already has a block on the chain
//	case err != nil:
//	    log.Fatal(err)
//	}
//	fmt.Println(receipt.TxID)
//
// Verify walks the full chain on the server and reports the first broken
// block, if any:
//
//	res, err := c.Verify(ctx)
//	if err == nil && !res.Valid {
//	    fmt.Printf("chain broken at block %d: %s\n", res.Index, res.Message)
//	}
package client
