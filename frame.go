package p2p

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// MaxFrameSize is the largest encoded parcel a peer accepts
const MaxFrameSize = 1 << 20

// protobuf field numbers of the frame message:
//
//	message Frame {
//	    uint32  type    = 1;
//	    fixed32 crc32   = 2;
//	    bytes   payload = 3;
//	}
const (
	fieldType    protowire.Number = 1
	fieldCrc32   protowire.Number = 2
	fieldPayload protowire.Number = 3
)

// frameCodec reads and writes parcels on a byte stream. Every frame is a 4 byte
// little endian length followed by a protobuf encoded Frame message.
type frameCodec struct {
	r *bufio.Reader
	w io.Writer
}

func newFrameCodec(rw io.ReadWriter) *frameCodec {
	return &frameCodec{r: bufio.NewReader(rw), w: rw}
}

func encodeFrame(p *Parcel) []byte {
	size := protowire.SizeTag(fieldType) + protowire.SizeVarint(uint64(p.Type)) +
		protowire.SizeTag(fieldCrc32) + protowire.SizeFixed32() +
		protowire.SizeTag(fieldPayload) + protowire.SizeBytes(len(p.Payload))

	b := make([]byte, 4, 4+size)
	binary.LittleEndian.PutUint32(b, uint32(size))
	b = protowire.AppendTag(b, fieldType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.Type))
	b = protowire.AppendTag(b, fieldCrc32, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, p.Checksum())
	b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
	b = protowire.AppendBytes(b, p.Payload)
	return b
}

func decodeFrame(data []byte) (*Parcel, error) {
	var (
		ptype   uint64
		csum    uint32
		payload []byte
	)

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]

		switch {
		case num == fieldType && typ == protowire.VarintType:
			ptype, n = protowire.ConsumeVarint(data)
		case num == fieldCrc32 && typ == protowire.Fixed32Type:
			csum, n = protowire.ConsumeFixed32(data)
		case num == fieldPayload && typ == protowire.BytesType:
			payload, n = protowire.ConsumeBytes(data)
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
	}

	if ptype > uint64(TypeControl) {
		return nil, fmt.Errorf("unknown parcel type %d", ptype)
	}

	p := NewParcel(ParcelType(ptype), payload)
	if p.Checksum() != csum {
		return nil, fmt.Errorf("invalid checksum")
	}
	return p, nil
}

// Send writes a single parcel in one write call
func (fc *frameCodec) Send(p *Parcel) error {
	b := encodeFrame(p)
	written, err := fc.w.Write(b)
	if err != nil {
		return err
	}
	if written != len(b) {
		return fmt.Errorf("unable to write frame to connection, %d of %d written", written, len(b))
	}
	return nil
}

// Receive blocks until a full parcel has been read
func (fc *frameCodec) Receive() (*Parcel, error) {
	var sizebuf [4]byte
	if _, err := io.ReadFull(fc.r, sizebuf[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(sizebuf[:])
	if size > MaxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds maximum of %d", size, MaxFrameSize)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(fc.r, data); err != nil {
		return nil, err
	}
	return decodeFrame(data)
}
