// havn-demo exercises the SDK against a HAVN environment in test mode:
// it converts an amount to USD cents, sends a transaction, validates a
// voucher, and lists vouchers. Credentials come from HAVN_API_KEY and
// HAVN_WEBHOOK_SECRET.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"go.uber.org/zap/zapcore"

	havn "github.com/HAVN-Associates/havn-sdk"
	"github.com/HAVN-Associates/havn-sdk/pkg/logger"
)

func main() {
	referralCode := flag.String("referral", "HAVN-MJ-001", "Referral code to attribute the demo transaction to")
	promoCode := flag.String("promo", "", "Optional voucher code to attach and validate")
	amount := flag.Int64("amount", 8000, "Transaction amount in minor units of the currency")
	currencyCode := flag.String("currency", "USD", "Transaction currency (ISO 4217)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")

	flag.Parse()

	level, err := zapcore.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unknown log level %q: %v\n", *logLevel, err)
		os.Exit(1)
	}

	log, err := logger.NewZapLogger(logger.SetLevel(level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	client, err := havn.New(
		havn.WithTestMode(true),
		havn.WithLogger(log),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build client: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, 60*time.Second)
	defer timeoutCancel()

	cents := *amount
	if *currencyCode != "USD" {
		conversion, err := client.Currency().ConvertToUSDCents(*amount, *currencyCode)
		if err != nil {
			log.Errorw("currency conversion failed", "error", err)
			os.Exit(1)
		}
		log.Infow("converted amount",
			"original", *amount,
			"original_currency", *currencyCode,
			"usd_cents", conversion.Amount,
			"rate", conversion.ExchangeRate,
			"formatted", conversion.AmountFormatted,
		)
		cents = conversion.Amount
	}

	if *promoCode != "" && havn.IsPlatformVoucher(*promoCode) {
		valid, err := client.Vouchers.Validate(ctx, *promoCode, cents, "USD")
		if err != nil {
			log.Warnw("voucher validation failed", "code", *promoCode, "error", err)
		} else {
			log.Infow("voucher validated", "code", *promoCode, "valid", valid)
		}
	}

	resp, err := client.Transactions.Send(ctx, havn.TransactionRequest{
		Amount:                      cents,
		PaymentGatewayTransactionID: uuid.New().String(),
		PaymentGateway:              "STRIPE",
		CustomerEmail:               gofakeit.Email(),
		ReferralCode:                *referralCode,
		PromoCode:                   *promoCode,
		Description:                 "havn-demo test transaction",
	})
	if err != nil {
		log.Errorw("transaction send failed", "error", err)
		os.Exit(1)
	}

	log.Infow("transaction accepted",
		"transaction_id", resp.Transaction.TransactionID,
		"acquisition_method", resp.Transaction.AcquisitionMethod,
		"commissions", len(resp.Commissions),
	)

	perPage := 10
	list, err := client.Vouchers.GetAll(ctx, havn.VoucherListFilters{PerPage: &perPage})
	if err != nil {
		log.Warnw("voucher list failed", "error", err)
		return
	}

	for _, voucher := range list.Vouchers {
		log.Infow("voucher",
			"code", voucher.Code,
			"type", voucher.Type,
			"valid", voucher.IsValid,
			"platform", voucher.IsPlatformVoucher,
		)
	}
}
