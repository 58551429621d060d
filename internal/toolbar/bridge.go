package toolbar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
)

// The bridge page runs in the popup the authorization server redirected to.
// It hands the authorization response to the opener window and closes; the
// toolbar then calls the exchange endpoint with the relayed code and state.
const bridgePageTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Authorizing…</title></head>
<body>
<script>
    var payload = {{.Payload}};
    var openerWindow = window.opener;
    if (openerWindow) {
        openerWindow.postMessage({type: "toolbar_oauth_callback", payload: payload}, "*");
    }
    window.close();
</script>
</body>
</html>
`

var bridgeTmpl = template.Must(template.New("bridge").Parse(bridgePageTemplate))

func renderBridgePage(payload map[string]string) ([]byte, error) {
	raw, err := json.MarshalIndent(payload, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	var buf bytes.Buffer
	if err := bridgeTmpl.Execute(&buf, struct{ Payload template.JS }{Payload: template.JS(raw)}); err != nil {
		return nil, fmt.Errorf("render bridge: %w", err)
	}
	return buf.Bytes(), nil
}
