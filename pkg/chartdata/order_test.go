package chartdata

import (
	"testing"

	"github.com/opscart/subscriptions-utilized/pkg/models"
)

func TestShouldReverse(t *testing.T) {
	tests := []struct {
		name string
		one  models.Value
		two  models.Value
		want bool
	}{
		{"first over and higher", models.Number(150), models.Number(80), true},
		{"first under threshold", models.Number(90), models.Number(150), false},
		{"first over but lower", models.Number(150), models.Number(200), false},
		{"first exactly 100", models.Number(100), models.Number(20), false},
		{"equal and over", models.Number(120), models.Number(120), false},
		{"second undefined", models.Number(150), models.Undefined(), false},
		{"first undefined", models.Undefined(), models.Number(10), false},
		{"second null", models.Number(150), models.Null(), true},
		{"first null", models.Null(), models.Number(0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldReverse(tt.one, tt.two); got != tt.want {
				t.Errorf("ShouldReverse(%s, %s) = %v, expected %v", tt.one, tt.two, got, tt.want)
			}
		})
	}
}

func TestOrder(t *testing.T) {
	got := Order("productOne", "productTwo", models.Number(150), models.Number(80))
	if got[0] != "productOne" || got[1] != "productTwo" {
		t.Errorf("Expected over-utilized productOne first, got %v", got)
	}

	got = Order("productOne", "productTwo", models.Number(90), models.Number(150))
	if got[0] != "productTwo" || got[1] != "productOne" {
		t.Errorf("Expected default order, got %v", got)
	}
}
