package track

// Source is the totally ordered data-source enum. Order matters:
// arbitration in AcceptData compares sources directly as integers,
// lowest to highest quality/trust.
type Source int

const (
	SourceInvalid Source = iota
	SourceIndirect
	SourceModeAC
	SourceSBS
	SourceMLAT
	SourceModeS
	SourceJAERO
	SourceModeSChecked
	SourceTISB
	SourceADSR
	SourceADSB
	SourcePrio
)

func (s Source) String() string {
	switch s {
	case SourceInvalid:
		return "invalid"
	case SourceIndirect:
		return "indirect"
	case SourceModeAC:
		return "mode_ac"
	case SourceSBS:
		return "sbs"
	case SourceMLAT:
		return "mlat"
	case SourceModeS:
		return "mode_s"
	case SourceJAERO:
		return "jaero"
	case SourceModeSChecked:
		return "mode_s_checked"
	case SourceTISB:
		return "tisb"
	case SourceADSR:
		return "adsr"
	case SourceADSB:
		return "adsb"
	case SourcePrio:
		return "prio"
	default:
		return "unknown"
	}
}
