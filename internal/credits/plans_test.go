package credits

import (
	"net/url"
	"testing"
)

func TestPlans(t *testing.T) {
	if p := DefaultPlan(); p.ID != "popular" || p.Credits != 250 {
		t.Errorf("expected popular plan by default, got %+v", p)
	}

	tc := []struct {
		id       string
		price    string
		original string
		discount string
	}{
		{"basic", "$5.99", "", ""},
		{"popular", "$14.99", "$24.95", "40% OFF"},
		{"premium", "$29.99", "$59.99", "50% OFF"},
	}

	for _, tt := range tc {
		t.Run(tt.id, func(t *testing.T) {
			p, ok := FindPlan(tt.id)
			if !ok {
				t.Fatalf("plan %s not found", tt.id)
			}
			if p.PriceLabel() != tt.price || p.OriginalPriceLabel() != tt.original || p.DiscountLabel() != tt.discount {
				t.Errorf("unexpected labels %q %q %q", p.PriceLabel(), p.OriginalPriceLabel(), p.DiscountLabel())
			}
		})
	}

	if _, ok := FindPlan("enterprise"); ok {
		t.Error("unknown plan should not be found")
	}
}

func TestCheckoutURL(t *testing.T) {
	p, _ := FindPlan("premium")
	u, err := url.Parse(CheckoutURL("", p))
	if err != nil {
		t.Fatalf("invalid url: %v", err)
	}
	if u.Host != "stripe.com" || u.Query().Get("plan") != "premium" || u.Query().Get("credits") != "600" {
		t.Errorf("unexpected checkout url %s", u)
	}
	if p.BuyLabel() != "Buy 600 credits" {
		t.Errorf("unexpected buy label %q", p.BuyLabel())
	}
}
