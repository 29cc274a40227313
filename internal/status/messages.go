package status

// Fixed display copy keyed by status. The UI shows these verbatim and never
// learns why a session is in a given state.

var messages = map[Availability]string{
	StatusAvailable:    "Seats available",
	StatusLimited:      "Seats are filling up fast",
	StatusAdvancedOnly: "Only Advanced packages can still register",
	StatusFull:         "This session is full",
	StatusClosed:       "Registration is closed for this session",
}

var messagesTH = map[Availability]string{
	StatusAvailable:    "มีที่นั่งว่าง",
	StatusLimited:      "ที่นั่งใกล้เต็มแล้ว",
	StatusAdvancedOnly: "เหลือที่นั่งสำหรับแพ็กเกจ Advanced เท่านั้น",
	StatusFull:         "รอบนี้เต็มแล้ว",
	StatusClosed:       "ปิดรับสมัครสำหรับรอบนี้แล้ว",
}

func MessageFor(s Availability) string {
	return messages[s]
}

func MessageTHFor(s Availability) string {
	return messagesTH[s]
}
