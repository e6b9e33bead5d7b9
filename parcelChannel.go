package p2p

var pcLogger = packageLogger.WithField("subpack", "parcelchannel")

// ParcelChannel is a channel that supports non-blocking sends
type ParcelChannel chan *Parcel

// NewParcelChannel creates a parcel channel with the given capacity
func NewParcelChannel(capacity uint) ParcelChannel {
	return make(ParcelChannel, capacity)
}

// Send a parcel along this channel. Non-blocking. If full, half of the queued parcels
// are dropped to make room. Returns whether the parcel was queued and how many old
// parcels were dropped.
func (pc ParcelChannel) Send(parcel *Parcel) (bool, int) {
	select {
	case pc <- parcel:
		return true, 0
	default:
	}

	dropped := 0
	for len(pc) > cap(pc)/2 {
		select {
		case <-pc:
			dropped++
		default:
		}
	}
	pcLogger.Warnf("ParcelChannel.Send() - Channel is full! Dropped %d old parcels", dropped)

	select {
	case pc <- parcel:
		return true, dropped
	default:
		return false, dropped
	}
}

// Reader returns a read-only channel
func (pc ParcelChannel) Reader() <-chan *Parcel {
	return pc
}

// Capacity returns a percentage [0.0,1.0] of how full the channel is
func (pc ParcelChannel) Capacity() float64 {
	if cap(pc) == 0 {
		return 1
	}
	return float64(len(pc)) / float64(cap(pc))
}
