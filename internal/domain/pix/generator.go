package pix

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// Config describes the receiving PIX account.
type Config struct {
	Key          string        `default:"pix@storefront.example" usage:"PIX key receiving payments"`
	MerchantName string        `default:"STOREFRONT" usage:"Merchant name encoded in PIX codes"`
	MerchantCity string        `default:"SAO PAULO" usage:"Merchant city encoded in PIX codes"`
	Description  string        `default:"" usage:"Optional description encoded in PIX codes"`
	TTL          time.Duration `default:"30m" usage:"Validity of generated PIX charges"`
	QRSize       int           `default:"256" usage:"QR image size in pixels"`
}

// Charge is a generated PIX payment request.
type Charge struct {
	Code          string
	QRCodeDataURL string
	Amount        decimal.Decimal
	OrderID       string
	ExpiresAt     time.Time
}

// Generator produces PIX charges for orders.
type Generator struct {
	cfg Config
	now func() time.Time
}

// NewGenerator creates a Generator for the configured account.
func NewGenerator(cfg Config) *Generator {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.QRSize <= 0 {
		cfg.QRSize = 256
	}
	return &Generator{cfg: cfg, now: time.Now}
}

// Generate builds the BR Code and QR image charging amount for orderID.
func (g *Generator) Generate(ctx context.Context, orderID string, amount decimal.Decimal) (*Charge, error) {
	amount = amount.Round(2)
	code, err := Payload{
		Key:          g.cfg.Key,
		MerchantName: g.cfg.MerchantName,
		MerchantCity: g.cfg.MerchantCity,
		Description:  g.cfg.Description,
		TxID:         orderID,
		Amount:       amount,
	}.Encode()
	if err != nil {
		return nil, errors.Wrap(err, "encode br code")
	}

	png, err := qrcode.Encode(code, qrcode.Medium, g.cfg.QRSize)
	if err != nil {
		return nil, errors.Wrap(err, "encode qr")
	}

	zctx.From(ctx).Debug("PIX charge generated",
		zap.String("order_id", orderID),
		zap.String("amount", amount.StringFixed(2)),
	)
	return &Charge{
		Code:          code,
		QRCodeDataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		Amount:        amount,
		OrderID:       orderID,
		ExpiresAt:     g.now().Add(g.cfg.TTL).UTC(),
	}, nil
}
