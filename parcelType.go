package p2p

// ParcelType distinguishes the two planes a peer carries
type ParcelType uint8

const ( // iota is reset to 0
	TypeData    ParcelType = iota // packets for the overlay data path
	TypeControl                   // routing protocol messages
)

var typeStrings = map[ParcelType]string{
	TypeData:    "Data",
	TypeControl: "Control",
}

func (t ParcelType) String() string {
	if s, ok := typeStrings[t]; ok {
		return s
	}
	return "Unknown"
}
