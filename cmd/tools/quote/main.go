// Command quote prices an order read from stdin without a database:
//
//	echo '{"listing":{...},"orderData":{...}}' | quote -commission -25
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-market/internal/common"
	"github.com/noah-isme/backend-market/internal/lineitems"
	"github.com/noah-isme/backend-market/internal/transaction"
)

func main() {
	commission := flag.Float64("commission", lineitems.DefaultProviderCommission.Float(), "provider commission percent, e.g. -25")
	compact := flag.Bool("compact", false, "print compact JSON")
	flag.Parse()

	if err := run(os.Stdin, os.Stdout, *commission, *compact); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(in io.Reader, out io.Writer, commission float64, compact bool) error {
	var req transaction.QuoteRequest
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	if err := transaction.NewValidator().Struct(req); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}

	svc := &transaction.Service{
		Engine: lineitems.Engine{ProviderCommission: lineitems.PercentOf(commission)},
		Logger: zerolog.New(os.Stderr).Level(zerolog.WarnLevel),
	}
	result, err := svc.Quote(context.Background(), req.Listing.Snapshot(), req.OrderData)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			return fmt.Errorf("%s: %s", appErr.Code, appErr.Message)
		}
		return err
	}

	enc := json.NewEncoder(out)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}
