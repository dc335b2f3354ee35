package proto

// RCUnknown marks an Rc (radius of containment) that cannot be
// determined from the available NIC supplements; callers treat it as
// "no accuracy claim" rather than zero.
const RCUnknown = -1

// ComputeNIC ports track.c's compute_nic: it derives the navigation
// integrity category from the position message's metype, the
// aircraft's ADS-B version, and the nic_a/nic_b/nic_c supplement bits
// (nic_a and nic_c come from the aircraft's persisted operational
// status, nic_b from the current message).
func ComputeNIC(metype, version int, nicA, nicB, nicC bool) int {
	switch metype {
	case 5, 9, 20:
		return 11
	case 6, 10, 21:
		return 10
	case 7:
		switch {
		case version == 2:
			if nicA && !nicC {
				return 9
			}
			return 8
		case version == 1:
			if nicA {
				return 9
			}
			return 8
		default:
			return 8
		}
	case 8:
		if version != 2 {
			return 0
		}
		switch {
		case nicA && nicC:
			return 7
		case nicA && !nicC:
			return 6
		case !nicA && nicC:
			return 6
		default:
			return 0
		}
	case 11:
		switch {
		case version == 2:
			if nicA && nicB {
				return 9
			}
			return 8
		case version == 1:
			if nicA {
				return 9
			}
			return 8
		default:
			return 8
		}
	case 12:
		return 7
	case 13:
		return 6
	case 14:
		return 5
	case 15:
		return 4
	case 16:
		if nicA && nicB {
			return 3
		}
		return 2
	case 17:
		return 1
	default:
		return 0
	}
}

// ComputeRC ports track.c's compute_rc: the radius of containment, in
// meters, implied by the same metype/version/nic supplement inputs as
// ComputeNIC. Returns RCUnknown when no accuracy claim can be derived.
func ComputeRC(metype, version int, nicA, nicB, nicC bool) int {
	switch metype {
	case 5, 9, 20:
		return 8 // 7.5m
	case 6, 10, 21:
		return 25
	case 7:
		switch {
		case version == 2:
			if nicA && !nicC {
				return 75
			}
			return 186 // 185.2m, 0.1NM
		case version == 1:
			if nicA {
				return 75
			}
			return 186
		default:
			return 186
		}
	case 8:
		if version != 2 {
			return RCUnknown
		}
		switch {
		case nicA && nicC:
			return 371 // 370.4m, 0.2NM
		case nicA && !nicC:
			return 556 // 555.6m, 0.3NM
		case !nicA && nicC:
			return 926 // 0.5NM
		default:
			return RCUnknown
		}
	case 11:
		switch {
		case version == 2:
			if nicA && nicB {
				return 75
			}
			return 186
		case version == 1:
			if nicA {
				return 75
			}
			return 186
		default:
			return 186
		}
	case 12:
		return 371 // 0.2NM
	case 13:
		switch {
		case version == 2:
			switch {
			case !nicA && nicB:
				return 556 // 0.3NM
			case !nicA && !nicB:
				return 926 // 0.5NM
			case nicA && nicB:
				return 1112 // 0.6NM
			default:
				return RCUnknown
			}
		case version == 1:
			if nicA {
				return 1112
			}
			return 926
		default:
			return 926
		}
	case 14:
		return 1852 // 1.0NM
	case 15:
		return 3704 // 2NM
	case 16:
		switch {
		case version == 2:
			if nicA && nicB {
				return 7408 // 4NM
			}
			return 14816 // 8NM
		case version == 1:
			if nicA {
				return 7408
			}
			return 14816
		default:
			return 18520 // 10NM
		}
	case 17:
		return 37040 // 20NM
	default:
		return RCUnknown
	}
}

// ComputeV0NACp maps an ADS-B v0 position metype onto its implied NACp
// per ED-102A Table N-7. ok is false for message types the table
// doesn't cover.
func ComputeV0NACp(metype int) (nacp int, ok bool) {
	switch metype {
	case 0, 8, 18, 22:
		return 0, true
	case 5, 9, 20:
		return 11, true
	case 6, 10, 21:
		return 10, true
	case 7, 11:
		return 8, true
	case 12:
		return 7, true
	case 13:
		return 6, true
	case 14:
		return 5, true
	case 15:
		return 4, true
	case 16, 17:
		return 1, true
	default:
		return 0, false
	}
}

// ComputeV0SIL maps an ADS-B v0 position metype onto its implied SIL
// per ED-102A Table N-8.
func ComputeV0SIL(metype int) (sil int, ok bool) {
	switch metype {
	case 0, 18, 22:
		return 0, true
	case 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 20, 21:
		return 2, true
	default:
		return 0, false
	}
}
