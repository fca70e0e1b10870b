package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/houseapi"
	"github.com/cloudx-io/auctionhouse/validation"
)

func main() {
	var (
		receiptInput  = flag.String("receipt", "", "Receipt: file path, base64 or gzip/base64url string, or receipt response JSON (required)")
		publicKeyPath = flag.String("public-key", "", "Path to the house public key PEM file (required)")
		auctionID     = flag.Uint64("auction", 0, "Expected auction id")
		winner        = flag.String("winner", "", "Expected winner account")
		amount        = flag.String("amount", "", "Expected winning amount")
		recipient     = flag.String("recipient", "", "Expected proceeds recipient")
		outputFormat  = flag.String("format", "text", "Output format: text or json")
		help          = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	if *help {
		showUsage()
		os.Exit(0)
	}
	if *receiptInput == "" || *publicKeyPath == "" {
		showUsage()
		fmt.Fprintf(os.Stderr, "\nError: --receipt and --public-key are required\n")
		os.Exit(1)
	}

	raw, err := readReceipt(*receiptInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading receipt: %v\n", err)
		os.Exit(2)
	}

	publicKey, err := os.ReadFile(*publicKeyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading public key: %v\n", err)
		os.Exit(2)
	}

	input := &validation.ReceiptValidationInput{
		Receipt:      raw,
		PublicKeyPEM: string(publicKey),
		AuctionID:    *auctionID,
		Winner:       core.Address(*winner),
		Recipient:    core.Address(*recipient),
	}
	if *amount != "" {
		expected, err := decimal.NewFromString(*amount)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing --amount: %v\n", err)
			os.Exit(2)
		}
		input.Amount = &expected
	}

	result, err := validation.ValidateReceipt(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		os.Exit(2)
	}

	if *outputFormat == "json" {
		outputJSON(result)
	} else {
		outputText(result)
	}

	if !result.IsValid() {
		os.Exit(1)
	}
	os.Exit(0)
}

func showUsage() {
	fmt.Println("Auction House Settlement Receipt Validator")
	fmt.Println()
	fmt.Println("Verifies the signature and contents of a COSE_Sign1 settlement receipt.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  receipt-validator --receipt <receipt> --public-key <pem-file> [options]")
	fmt.Println()
	fmt.Println("Required Flags:")
	fmt.Println("  --receipt <receipt>       File path, base64, gzip/base64url, or a receipt response JSON")
	fmt.Println("  --public-key <path>       House public key (from the public_key request)")
	fmt.Println()
	fmt.Println("Optional Flags:")
	fmt.Println("  --auction <id>            Expected auction id")
	fmt.Println("  --winner <account>        Expected winner")
	fmt.Println("  --amount <amount>         Expected winning amount")
	fmt.Println("  --recipient <account>     Expected proceeds recipient")
	fmt.Println("  --format <text|json>      Output format (default: text)")
	fmt.Println("  --help                    Show this help message")
	fmt.Println()
	fmt.Println("Exit Codes:")
	fmt.Println("  0 - Validation passed")
	fmt.Println("  1 - Validation failed")
	fmt.Println("  2 - Invalid input or runtime error")
}

// readReceipt accepts a file or inline value in any of the transport encodings.
func readReceipt(input string) (houseapi.ReceiptCOSE, error) {
	data := []byte(input)
	if fileData, err := os.ReadFile(input); err == nil {
		data = fileData
	}
	text := strings.TrimSpace(string(data))

	if strings.HasPrefix(text, "{") {
		var result houseapi.ReceiptResult
		if err := json.Unmarshal([]byte(text), &result); err != nil {
			return nil, fmt.Errorf("parse receipt JSON: %w", err)
		}
		if result.ReceiptCOSEBase64 != "" {
			return result.ReceiptCOSEBase64.Decode()
		}
		return result.ReceiptCOSEGzip.Decompress()
	}

	if raw, err := houseapi.ReceiptCOSEGzip(text).Decompress(); err == nil {
		return raw, nil
	}
	if raw, err := houseapi.ReceiptCOSEBase64(text).Decode(); err == nil {
		return raw, nil
	}
	// Binary file: raw COSE bytes.
	return houseapi.ReceiptCOSE(data), nil
}

func outputText(result *validation.ReceiptValidationResult) {
	fmt.Println("Auction House Settlement Receipt Validator")
	fmt.Println("==========================================")
	fmt.Println()

	if r := result.Receipt; r != nil {
		fmt.Println("Receipt:")
		fmt.Printf("  Receipt ID:   %s\n", r.ReceiptID)
		fmt.Printf("  Auction:      %d\n", r.AuctionID)
		fmt.Printf("  Winner:       %s\n", r.Winner)
		fmt.Printf("  Amount:       %s (fee %s, proceeds %s)\n", r.Amount, r.Fee, r.Proceeds)
		fmt.Printf("  Recipient:    %s\n", r.Recipient)
		fmt.Printf("  Settled At:   %s\n", r.SettledAt.UTC().Format("2006-01-02T15:04:05Z"))
		if r.JournalHead != "" {
			fmt.Printf("  Journal Head: %s (run %s)\n", r.JournalHead, r.RunID)
		}
		fmt.Println()
	}

	fmt.Println("Summary:")
	fmt.Printf("  Signature Valid:       %v\n", result.SignatureValid)
	fmt.Printf("  Key ID Match:          %v\n", result.KeyIDMatch)
	fmt.Printf("  Settlement Hash Valid: %v\n", result.HashValid)
	fmt.Printf("  Distribution Valid:    %v\n", result.DistributionValid)
	fmt.Printf("  Auction Match:         %v\n", result.AuctionMatch)
	fmt.Printf("  Winner Match:          %v\n", result.WinnerMatch)
	fmt.Printf("  Amount Match:          %v\n", result.AmountMatch)
	fmt.Printf("  Recipient Match:       %v\n", result.RecipientMatch)

	fmt.Println()
	fmt.Println("Details:")
	for _, detail := range result.ValidationDetails {
		fmt.Printf("  - %s\n", detail)
	}

	fmt.Println()
	fmt.Println("==========================================")
	if result.IsValid() {
		fmt.Println("VALIDATION: ✓ PASSED")
	} else {
		fmt.Println("VALIDATION: ✗ FAILED")
	}
}

func outputJSON(result *validation.ReceiptValidationResult) {
	output := map[string]any{
		"valid":              result.IsValid(),
		"signature_valid":    result.SignatureValid,
		"key_id_match":       result.KeyIDMatch,
		"hash_valid":         result.HashValid,
		"distribution_valid": result.DistributionValid,
		"auction_match":      result.AuctionMatch,
		"winner_match":       result.WinnerMatch,
		"amount_match":       result.AmountMatch,
		"recipient_match":    result.RecipientMatch,
		"receipt":            result.Receipt,
		"details":            result.ValidationDetails,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(string(data))
}
