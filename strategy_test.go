package torrouter

import "testing"

func TestLoadBalanceMethodIsValid(t *testing.T) {
	t.Parallel()

	if !RoundRobin.IsValid() || !Weighted.IsValid() {
		t.Error("recognized methods reported invalid")
	}
	if LoadBalanceMethod(99).IsValid() {
		t.Error("unknown method reported valid")
	}
	if LoadBalanceMethod(-1).IsValid() {
		t.Error("negative method reported valid")
	}
}

func TestLoadBalanceMethodString(t *testing.T) {
	t.Parallel()

	if got := RoundRobin.String(); got != "round_robin" {
		t.Errorf("RoundRobin.String() = %q, want round_robin", got)
	}
	if got := Weighted.String(); got != "weighted" {
		t.Errorf("Weighted.String() = %q, want weighted", got)
	}
	if got := LoadBalanceMethod(99).String(); got != "unknown(99)" {
		t.Errorf("unknown String() = %q, want unknown(99)", got)
	}
}

func TestParseLoadBalanceMethod(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in      string
		want    LoadBalanceMethod
		wantErr bool
	}{
		"round robin": {in: "round_robin", want: RoundRobin},
		"weighted":    {in: "weighted", want: Weighted},
		"unknown":     {in: "random", wantErr: true},
		"empty":       {in: "", wantErr: true},
		"wrong case":  {in: "Weighted", wantErr: true},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseLoadBalanceMethod(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseLoadBalanceMethod(%q) = %v, want error", tc.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLoadBalanceMethod(%q) failed: %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParseLoadBalanceMethod(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
