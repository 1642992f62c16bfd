package domain

import "testing"

func TestParseProvider(t *testing.T) {
	t.Parallel()

	if p, ok := ParseProvider("transbank"); !ok || p != ProviderTransbank {
		t.Errorf("ParseProvider(transbank) = %q, %v", p, ok)
	}
	if p, ok := ParseProvider("mercado_pago"); !ok || p != ProviderMercadoPago {
		t.Errorf("ParseProvider(mercado_pago) = %q, %v", p, ok)
	}

	for _, invalid := range []string{"", "Transbank", "MERCADO_PAGO", "stripe", "mercadopago"} {
		if _, ok := ParseProvider(invalid); ok {
			t.Errorf("ParseProvider(%q) accepted", invalid)
		}
	}
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	valid := []string{"pending", "authorized", "captured", "declined", "cancelled", "refunded", "error"}
	for _, v := range valid {
		if s, ok := ParseStatus(v); !ok || string(s) != v {
			t.Errorf("ParseStatus(%q) = %q, %v", v, s, ok)
		}
	}

	for _, invalid := range []string{"", "PENDING", "Captured", "done", "refund"} {
		if _, ok := ParseStatus(invalid); ok {
			t.Errorf("ParseStatus(%q) accepted", invalid)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	terminal := map[PaymentStatus]bool{
		PaymentStatusPending:    false,
		PaymentStatusAuthorized: false,
		PaymentStatusCaptured:   false,
		PaymentStatusDeclined:   true,
		PaymentStatusCancelled:  true,
		PaymentStatusRefunded:   true,
		PaymentStatusError:      true,
	}

	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Errorf("%q.IsTerminal() = %v, want %v", status, got, want)
		}
	}
}
