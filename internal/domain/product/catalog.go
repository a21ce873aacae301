package product

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// DecodeCatalog parses a JSON array of products. Prices may be given as
// numbers or strings; unknown fields are ignored.
func DecodeCatalog(data []byte) ([]Product, error) {
	var out []Product
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Array {
		return nil, errors.New("catalog must be a JSON array")
	}
	err := d.Arr(func(d *jx.Decoder) error {
		p, err := decodeProduct(d)
		if err != nil {
			return errors.Wrapf(err, "product %d", len(out)+1)
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	return out, nil
}

func decodeProduct(d *jx.Decoder) (Product, error) {
	var p Product
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "category":
			p.Category, err = d.Str()
		case "price":
			p.Price, err = decodePrice(d)
		case "image":
			p.Image, err = decodeImage(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, string(key))
		}
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	if p.ID == "" {
		return Product{}, errors.New("id is required")
	}
	if p.Price.IsNegative() {
		return Product{}, errors.New("price must not be negative")
	}
	return p, nil
}

func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	var s string
	switch d.Next() {
	case jx.String:
		v, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		s = v
	case jx.Number:
		raw, err := d.Raw()
		if err != nil {
			return decimal.Zero, err
		}
		s = string(raw)
	default:
		return decimal.Zero, errors.New("must be a number or a string")
	}
	return decimal.NewFromString(s)
}

func decodeImage(d *jx.Decoder) (Image, error) {
	var img Image
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "thumbnail":
			img.Thumbnail, err = d.Str()
		case "mobile":
			img.Mobile, err = d.Str()
		case "tablet":
			img.Tablet, err = d.Str()
		case "desktop":
			img.Desktop, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return img, err
}
