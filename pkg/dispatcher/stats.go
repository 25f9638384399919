package dispatcher

// Stats counts frames seen by a Dispatcher since it was created.
type Stats struct {
	Frames         uint64 `json:"frames"`
	Delivered      uint64 `json:"delivered"`
	Orphans        uint64 `json:"orphans"`
	EnvelopeErrors uint64 `json:"envelopeErrors"`
	MessageErrors  uint64 `json:"messageErrors"`
	CallbackErrors uint64 `json:"callbackErrors"`
	OutOfBand      uint64 `json:"outOfBand"`
}

// Stats returns a snapshot of the counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Frames:         d.frames.Load(),
		Delivered:      d.delivered.Load(),
		Orphans:        d.orphans.Load(),
		EnvelopeErrors: d.envelopeErrors.Load(),
		MessageErrors:  d.messageErrors.Load(),
		CallbackErrors: d.callbackErrors.Load(),
		OutOfBand:      d.outOfBandCount.Load(),
	}
}
