package viewer

import "net/http"

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Sampled Clusters</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>
  html, body, #map { height: 100%; margin: 0; }
  .summary {
    position: absolute; bottom: 12px; left: 12px; z-index: 1000;
    background: rgba(255,255,255,0.92); padding: 8px 12px;
    border-radius: 4px; font: 13px/1.5 sans-serif; box-shadow: 0 1px 4px rgba(0,0,0,0.3);
  }
</style>
</head>
<body>
<div id="map"></div>
<div id="summary" class="summary">loading…</div>
<script>
const map = L.map('map').setView([0, 0], 2);
L.tileLayer('/tiles/{z}/{x}/{y}.png', {
  maxZoom: 19,
  attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);

const control = L.control.layers(null, null, {collapsed: false}).addTo(map);

const styles = {
  stations: f => ({radius: 6, color: '#222', fillColor: f.properties.color || '#d62728', fillOpacity: 0.9}),
  buffers:  f => {
    const legend = {20: [0.4, null], 25: [0.3, '5,5'], 40: [0.2, '10,10'], 60: [0.1, '2,8']};
    const [opacity, dash] = legend[f.properties.buffer_km] || [0.3, null];
    return {color: f.properties.color || '#1f77b4', weight: 1,
            opacity: opacity, fillOpacity: 0.05, dashArray: dash};
  },
  grid:     () => ({color: '#888', weight: 0.5, fillOpacity: 0}),
  clusters: f => ({color: f.properties.cluster_type === 'main' ? '#2ca02c' : '#ff7f0e',
                   weight: 2, fillOpacity: 0.35,
                   dashArray: f.properties.cluster_type === 'replacement' ? '4 4' : null}),
  merged:   f => styles.clusters(f),
  roads:    () => ({radius: 4, color: '#9467bd', fillColor: '#9467bd', fillOpacity: 0.9})
};

function popup(feature, layer) {
  const rows = Object.entries(feature.properties || {})
    .map(([k, v]) => '<b>' + k + '</b>: ' + v).join('<br>');
  if (rows) layer.bindPopup(rows);
}

async function addLayer(name, visible) {
  const resp = await fetch('/api/layers/' + name);
  if (!resp.ok) return null;
  const data = await resp.json();
  const style = styles[name] || (() => ({}));
  const layer = L.geoJSON(data, {
    style: style,
    pointToLayer: (f, latlng) => L.circleMarker(latlng, style(f)),
    onEachFeature: popup
  });
  control.addOverlay(layer, name);
  if (visible) layer.addTo(map);
  return layer;
}

(async () => {
  const {layers} = await (await fetch('/api/layers')).json();
  const visible = new Set(['stations', 'buffers', 'merged', 'clusters', 'roads']);
  let fit = null;
  for (const name of layers) {
    if (name === 'clusters' && layers.includes('merged')) visible.delete('clusters');
    const layer = await addLayer(name, visible.has(name));
    if (layer && name === 'buffers') fit = layer;
  }
  if (fit) map.fitBounds(fit.getBounds());

  const s = await (await fetch('/api/summary')).json();
  document.getElementById('summary').innerHTML =
    s.stations + ' stations &middot; ' + s.clusters_main + ' main / ' +
    s.clusters_replacement + ' replacement clusters &middot; ' +
    s.sampled_population + ' people sampled';
})();
</script>
</body>
</html>
`
