package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/harp-strings/internal/harp"
	"github.com/sweeney/harp-strings/internal/pluck"
	"github.com/sweeney/harp-strings/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"wiring": func(st harp.StringStatus) string {
		if st.Mux < 0 {
			return fmt.Sprintf("ch %d", st.Input)
		}
		return fmt.Sprintf("ch %d / mux %d", st.Input, st.Mux)
	},
	"stateClass": func(s pluck.State) string {
		switch s {
		case pluck.StateIdle:
			return "idle"
		case pluck.StateArmed:
			return "armed"
		case pluck.StateSounding:
			return "sounding"
		}
		return "invalid"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Harp Strings</title>
<style>
body { font-family: monospace; max-width: 720px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.idle { color: #888; }
.armed { color: orange; font-weight: bold; }
.sounding { color: green; font-weight: bold; }
.invalid { color: red; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Harp Strings</h1>

<h2>Strings</h2>
<table id="strings">
<tr><th>Name</th><th>State</th><th>Value</th><th>Threshold</th><th>Note</th><th>Input</th></tr>
{{range .Strings}}<tr data-name="{{.Name}}"><td>{{.Name}}</td><td class="state {{stateClass .State}}">{{.State}}</td><td class="value">{{.Value}}</td><td>{{.Threshold}}</td><td>{{.Note}}</td><td>{{wiring .}}</td></tr>
{{else}}<tr><td colspan="6">no strings configured</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>MIDI</th><td>{{if .Config.MIDIPort}}{{.Config.MIDIPort}}{{else}}none{{end}}</td></tr>
<tr><th>ADC</th><td>{{.Config.ADCPort}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Note on</th><td>{{.Counts.NoteOn}}</td></tr>
<tr><th>Note off</th><td>{{.Counts.NoteOff}}</td></tr>
<tr><th>Errors</th><td>{{.Counts.Errors}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Sample period</th><td>{{.Config.SamplePeriodMs}}ms</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  function refresh() {
    fetch("/index.json").then(function(r) { return r.json(); }).then(function(doc) {
      doc.status.strings.forEach(function(s) {
        var row = document.querySelector('tr[data-name="' + s.name + '"]');
        if (!row) return;
        var st = row.querySelector(".state");
        st.textContent = s.state;
        st.className = "state " + s.state.toLowerCase();
        row.querySelector(".value").textContent = s.value;
      });
    }).catch(function() {});
  }
  setInterval(refresh, 250);
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
