package p2p

import (
	"sync"
	"time"
)

// Measure tracks the parcel and byte rates of a single peer
type Measure struct {
	parcelsIn  uint64
	parcelsOut uint64
	bytesIn    uint64
	bytesOut   uint64
	dataMtx    sync.Mutex

	rateParcelOut float64
	rateParcelIn  float64
	rateBytesOut  float64
	rateBytesIn   float64
	rateMtx       sync.RWMutex

	rate time.Duration
	stop chan struct{}
	once sync.Once
}

// NewMeasure starts a measure that recalculates its rates every interval
func NewMeasure(rate time.Duration) *Measure {
	m := new(Measure)
	m.rate = rate
	m.stop = make(chan struct{})
	if rate > 0 {
		go m.run()
	}
	return m
}

// GetRate returns the rates of the last interval:
// parcels in, parcels out, bytes in, bytes out (per second)
func (m *Measure) GetRate() (float64, float64, float64, float64) {
	m.rateMtx.RLock()
	defer m.rateMtx.RUnlock()
	return m.rateParcelIn, m.rateParcelOut, m.rateBytesIn, m.rateBytesOut
}

func (m *Measure) run() {
	ticker := time.NewTicker(m.rate)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.calculate()
		}
	}
}

// calculate turns the counters of the last interval into rates and resets them
func (m *Measure) calculate() {
	m.dataMtx.Lock()
	m.rateMtx.Lock()
	defer m.dataMtx.Unlock()
	defer m.rateMtx.Unlock()

	if m.rate > 0 {
		sec := m.rate.Seconds()
		m.rateParcelOut = float64(m.parcelsOut) / sec
		m.rateBytesOut = float64(m.bytesOut) / sec
		m.rateParcelIn = float64(m.parcelsIn) / sec
		m.rateBytesIn = float64(m.bytesIn) / sec
	}

	m.parcelsIn = 0
	m.parcelsOut = 0
	m.bytesIn = 0
	m.bytesOut = 0
}

// Stop the background calculation
func (m *Measure) Stop() {
	m.once.Do(func() {
		if m.stop != nil {
			close(m.stop)
		}
	})
}

// Send records an outgoing parcel
func (m *Measure) Send(size uint64) {
	m.dataMtx.Lock()
	m.parcelsOut++
	m.bytesOut += size
	m.dataMtx.Unlock()
}

// Receive records an incoming parcel
func (m *Measure) Receive(size uint64) {
	m.dataMtx.Lock()
	m.parcelsIn++
	m.bytesIn += size
	m.dataMtx.Unlock()
}
