package track

import "testing"

func TestAcceptDataInvalidSourceRejected(t *testing.T) {
	v := &Validity{}
	accepted, _ := AcceptData(v, SourceInvalid, 1000, false, false, 0, 0)
	if accepted {
		t.Fatal("AcceptData accepted SourceInvalid")
	}
}

func TestAcceptDataOutOfOrderTimestampRejected(t *testing.T) {
	v := &Validity{LastUpdatedMs: 5000}
	accepted, _ := AcceptData(v, SourceADSB, 1000, false, false, 0, 0)
	if accepted {
		t.Fatal("AcceptData accepted a message older than the last update")
	}
}

func TestAcceptDataLowerSourceRejectedWithinStaleWindow(t *testing.T) {
	v := &Validity{Source: SourceADSB, LastSource: SourceADSB, LastUpdatedMs: 1000}
	accepted, _ := AcceptData(v, SourceMLAT, 1000+StaleWindowMs-1, false, false, 0, 0)
	if accepted {
		t.Fatal("AcceptData accepted a lower-priority source before the stale window elapsed")
	}
}

func TestAcceptDataLowerSourceAcceptedAfterStaleWindow(t *testing.T) {
	v := &Validity{Source: SourceADSB, LastSource: SourceADSB, LastUpdatedMs: 1000}
	nowMs := int64(1000 + StaleWindowMs + 1)
	accepted, _ := AcceptData(v, SourceMLAT, nowMs, false, false, 0, 0)
	if !accepted {
		t.Fatal("AcceptData rejected a lower-priority source after the stale window elapsed")
	}
	if v.Source != SourceMLAT {
		t.Errorf("v.Source = %v, want %v", v.Source, SourceMLAT)
	}
	if v.LastUpdatedMs != nowMs {
		t.Errorf("v.LastUpdatedMs = %d, want %d", v.LastUpdatedMs, nowMs)
	}
}

func TestAcceptDataJaeroHoldoff(t *testing.T) {
	v := &Validity{Source: SourceModeSChecked, LastSource: SourceModeSChecked, LastUpdatedMs: 1000}
	accepted, _ := AcceptData(v, SourceJAERO, 1000+599_999, false, false, 0, 0)
	if accepted {
		t.Fatal("AcceptData accepted JAERO before its 600s holdoff elapsed")
	}
}

func TestAcceptDataPrioMapsToADSB(t *testing.T) {
	v := &Validity{}
	accepted, _ := AcceptData(v, SourcePrio, 1000, false, false, 0, 0)
	if !accepted {
		t.Fatal("AcceptData rejected SourcePrio")
	}
	if v.Source != SourceADSB {
		t.Errorf("v.Source = %v, want %v (SourcePrio collapses to ADSB)", v.Source, SourceADSB)
	}
}

func TestAcceptDataReduceForwardHints(t *testing.T) {
	testCases := []struct {
		name             string
		reduceHint       int
		reduceIntervalMs int64
		wantDelta        int64
	}{
		{"no_hint", 0, 1000, 4000},
		{"often", 1, 1000, 1000},
		{"very_often", 2, 1000, 500},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := &Validity{}
			nowMs := int64(10_000)
			accepted, forwardReduced := AcceptData(v, SourceADSB, nowMs, false, false, tc.reduceHint, tc.reduceIntervalMs)
			if !accepted {
				t.Fatal("AcceptData rejected a fresh ADS-B update")
			}
			if !forwardReduced {
				t.Fatal("expected the first update past a zero deadline to be forwarded")
			}
			if want := nowMs + tc.wantDelta; v.NextReduceForward != want {
				t.Errorf("v.NextReduceForward = %d, want %d", v.NextReduceForward, want)
			}
		})
	}
}

func TestAcceptDataSBSNeverAdvancesReduceDeadline(t *testing.T) {
	v := &Validity{}
	_, forwardReduced := AcceptData(v, SourceSBS, 1000, true, false, 0, 1000)
	if forwardReduced {
		t.Fatal("AcceptData marked an SBS-originated message for reduced-stream forwarding")
	}
	if v.NextReduceForward != 0 {
		t.Errorf("v.NextReduceForward = %d, want 0 (untouched by an SBS update)", v.NextReduceForward)
	}
}

func TestCombineValidityTakesWorseSourceAndLaterTime(t *testing.T) {
	a := Validity{Source: SourceADSB, LastUpdatedMs: 1000}
	b := Validity{Source: SourceMLAT, LastUpdatedMs: 2000}

	got := CombineValidity(a, b, 2000)
	if got.Source != SourceMLAT {
		t.Errorf("Source = %v, want %v", got.Source, SourceMLAT)
	}
	if got.LastUpdatedMs != 2000 {
		t.Errorf("LastUpdatedMs = %d, want 2000", got.LastUpdatedMs)
	}
}

func TestCombineValidityPassesThroughInvalidOperand(t *testing.T) {
	a := Validity{Source: SourceInvalid}
	b := Validity{Source: SourceADSB, LastUpdatedMs: 1000}

	if got := CombineValidity(a, b, 1000); got.Source != SourceADSB {
		t.Errorf("CombineValidity(invalid, b) = %+v, want b", got)
	}
	if got := CombineValidity(b, a, 1000); got.Source != SourceADSB {
		t.Errorf("CombineValidity(b, invalid) = %+v, want b", got)
	}
}

func TestCompareValidity(t *testing.T) {
	testCases := []struct {
		name string
		lhs  Validity
		rhs  Validity
		want int
	}{
		{
			name: "higher_non_stale_source_wins",
			lhs:  Validity{Source: SourceADSB, LastUpdatedMs: 1},
			rhs:  Validity{Source: SourceMLAT, LastUpdatedMs: 100},
			want: 1,
		},
		{
			name: "stale_lhs_loses_to_lower_but_fresh_rhs",
			lhs:  Validity{Source: SourceADSB, Stale: true, LastUpdatedMs: 1},
			rhs:  Validity{Source: SourceMLAT, LastUpdatedMs: 100},
			want: -1,
		},
		{
			name: "equal_source_falls_back_to_recency",
			lhs:  Validity{Source: SourceADSB, LastUpdatedMs: 50},
			rhs:  Validity{Source: SourceADSB, LastUpdatedMs: 10},
			want: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CompareValidity(tc.lhs, tc.rhs); got != tc.want {
				t.Errorf("CompareValidity(%+v, %+v) = %d, want %d", tc.lhs, tc.rhs, got, tc.want)
			}
		})
	}
}

func TestValidityValidAndAge(t *testing.T) {
	v := Validity{Source: SourceInvalid}
	if v.Valid() {
		t.Error("zero-value Validity reports Valid()")
	}

	v = Validity{Source: SourceADSB, LastUpdatedMs: 1000}
	if !v.Valid() {
		t.Error("Validity with a real source reports !Valid()")
	}
	if got := v.AgeMs(1500); got != 500 {
		t.Errorf("AgeMs(1500) = %d, want 500", got)
	}
}
