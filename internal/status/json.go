package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Strings       []StringJSON `json:"strings"`
	Sounding      int          `json:"sounding"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// StringJSON is the JSON representation of one string.
type StringJSON struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	Value     uint16 `json:"value"`
	Threshold uint16 `json:"threshold"`
	Touched   bool   `json:"touched"`
	Note      uint8  `json:"note"`
	Input     int    `json:"input"`
	Mux       *int   `json:"mux,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	NoteOn  int `json:"note_on"`
	NoteOff int `json:"note_off"`
	Errors  int `json:"errors"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	SamplePeriodMs int64  `json:"sample_period_ms"`
	TickMs         int64  `json:"tick_ms"`
	HeartbeatMs    int64  `json:"heartbeat_ms"`
	Broker         string `json:"broker"`
	HTTPAddr       string `json:"http_addr"`
	MIDIPort       string `json:"midi_port,omitempty"`
	ADCPort        string `json:"adc_port"`
}

func buildInner(snap Snapshot) StatusInner {
	strs := make([]StringJSON, 0, len(snap.Strings))
	for _, s := range snap.Strings {
		sj := StringJSON{
			Name:      s.Name,
			State:     s.State.String(),
			Value:     s.Value,
			Threshold: s.Threshold,
			Touched:   s.Touched,
			Note:      s.Note,
			Input:     s.Input,
		}
		if s.Mux >= 0 {
			mux := s.Mux
			sj.Mux = &mux
		}
		strs = append(strs, sj)
	}

	return StatusInner{
		Strings:       strs,
		Sounding:      snap.Sounding(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			NoteOn:  snap.Counts.NoteOn,
			NoteOff: snap.Counts.NoteOff,
			Errors:  snap.Counts.Errors,
		},
		Config: ConfigJSON{
			SamplePeriodMs: snap.Config.SamplePeriodMs,
			TickMs:         snap.Config.TickMs,
			HeartbeatMs:    snap.Config.HeartbeatMs,
			Broker:         snap.Config.Broker,
			HTTPAddr:       snap.Config.HTTPAddr,
			MIDIPort:       snap.Config.MIDIPort,
			ADCPort:        snap.Config.ADCPort,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
