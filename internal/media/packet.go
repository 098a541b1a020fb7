package media

// EncodedPacket is the output of an Encoder: one codec access unit ready to
// be written as an RTP sample.
type EncodedPacket struct {
	Payload          []byte
	KeyFrame         bool
	SourceTimestampMS int64
	PresentationSeq  uint64 // monotonic, preserved across None/skip returns
}
