// Package pix builds PIX "copia e cola" payment codes (EMV BR Code) and
// their QR images.
package pix

import (
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/apperr"
)

// EMV field identifiers used by the static BR Code.
const (
	idPayloadFormat    = "00"
	idInitiationMethod = "01"
	idMerchantAccount  = "26"
	idCategoryCode     = "52"
	idCurrency         = "53"
	idAmount           = "54"
	idCountry          = "58"
	idMerchantName     = "59"
	idMerchantCity     = "60"
	idAdditionalData   = "62"
	idCRC              = "63"

	idAccountGUI         = "00"
	idAccountKey         = "01"
	idAccountDescription = "02"
	idAdditionalTxID     = "05"

	pixGUI          = "br.gov.bcb.pix"
	currencyBRL     = "986"
	countryBR       = "BR"
	maxMerchantName = 25
	maxMerchantCity = 15
	maxTxID         = 25
	maxAmountLen    = 13
	defaultTxID     = "***"
)

// ErrInvalidAmount is returned when the amount to charge is not positive.
var ErrInvalidAmount = apperr.New(apperr.KindValidation, "pix amount must be greater than zero")

// Payload is the data encoded into a BR Code.
type Payload struct {
	Key          string
	MerchantName string
	MerchantCity string
	Description  string
	TxID         string
	Amount       decimal.Decimal
}

// Encode renders the payload as a BR Code string terminated by its CRC.
func (p Payload) Encode() (string, error) {
	if strings.TrimSpace(p.Key) == "" {
		return "", errors.New("pix key is required")
	}
	if !p.Amount.IsPositive() {
		return "", ErrInvalidAmount
	}
	amount := p.Amount.StringFixed(2)
	if len(amount) > maxAmountLen {
		return "", errors.Errorf("amount %s too large", amount)
	}

	account := field(idAccountGUI, pixGUI) + field(idAccountKey, p.Key)
	if d := sanitize(p.Description, 0); d != "" {
		account += field(idAccountDescription, d)
	}
	txid := txID(p.TxID)

	var b strings.Builder
	for _, f := range []struct{ id, value string }{
		{idPayloadFormat, "01"},
		{idInitiationMethod, "12"},
		{idMerchantAccount, account},
		{idCategoryCode, "0000"},
		{idCurrency, currencyBRL},
		{idAmount, amount},
		{idCountry, countryBR},
		{idMerchantName, sanitize(p.MerchantName, maxMerchantName)},
		{idMerchantCity, sanitize(p.MerchantCity, maxMerchantCity)},
		{idAdditionalData, field(idAdditionalTxID, txid)},
	} {
		if len(f.value) > 99 {
			return "", errors.Errorf("field %s exceeds 99 characters", f.id)
		}
		b.WriteString(field(f.id, f.value))
	}

	// The CRC covers everything up to and including its own id and length.
	b.WriteString(idCRC + "04")
	crc := strconv.FormatUint(uint64(CRC16([]byte(b.String()))), 16)
	b.WriteString(strings.ToUpper(leftPad(crc, 4)))
	return b.String(), nil
}

func field(id, value string) string {
	return id + leftPad(strconv.Itoa(len(value)), 2) + value
}

func leftPad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}

// sanitize keeps printable ASCII and truncates to limit bytes when limit > 0.
func sanitize(s string, limit int) string {
	out := make([]byte, 0, len(s))
	for i := range len(s) {
		if c := s[i]; c >= 0x20 && c <= 0x7E {
			out = append(out, c)
		}
	}
	res := strings.TrimSpace(string(out))
	if limit > 0 && len(res) > limit {
		res = strings.TrimSpace(res[:limit])
	}
	return res
}

// txID reduces id to the alphanumerics allowed in a transaction id.
func txID(id string) string {
	out := make([]byte, 0, maxTxID)
	for i := 0; i < len(id) && len(out) < maxTxID; i++ {
		c := id[i]
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return defaultTxID
	}
	return string(out)
}

// CRC16 computes CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF).
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for range 8 {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
