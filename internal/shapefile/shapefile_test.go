package shapefile

import (
	"path/filepath"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"
)

func writePointShapefile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stations.shp")
	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("STATION_ID", 10),
		shp.StringField("NAME", 30),
	}))

	points := []shp.Point{{X: 32.45, Y: 2.77}, {X: 30.27, Y: -0.61}}
	ids := []string{"ST1", "ST2"}
	names := []string{"Voice FM", "Hills FM"}
	for i := range points {
		w.Write(&points[i])
		require.NoError(t, w.WriteAttribute(i, 0, ids[i]))
		require.NoError(t, w.WriteAttribute(i, 1, names[i]))
	}
	w.Close()
	return path
}

func TestReadPoints(t *testing.T) {
	features, skipped, err := Read(writePointShapefile(t))
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, features, 2)

	pt, ok := features[0].Geom.(*geom.Point)
	require.True(t, ok)
	assert.InDelta(t, 32.45, pt.X(), 1e-9)
	assert.InDelta(t, 2.77, pt.Y(), 1e-9)
	assert.Equal(t, "ST1", features[0].Attrs["station_id"])
	assert.Equal(t, "Voice FM", features[0].Attrs["name"])
}

func TestReadPolyLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roads.shp")
	w, err := shp.Create(path, shp.POLYLINE)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("ROAD_ID", 10)}))

	line := shp.PolyLine{
		NumParts:  1,
		NumPoints: 3,
		Parts:     []int32{0},
		Points:    []shp.Point{{X: 32.0, Y: 0.0}, {X: 32.5, Y: 0.0}, {X: 33.0, Y: 0.1}},
	}
	w.Write(&line)
	require.NoError(t, w.WriteAttribute(0, 0, "A1"))
	w.Close()

	features, skipped, err := Read(path)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, features, 1)

	mls, ok := features[0].Geom.(*geom.MultiLineString)
	require.True(t, ok)
	require.Equal(t, 1, mls.NumLineStrings())
	assert.Equal(t, 3, mls.LineString(0).NumCoords())
	assert.Equal(t, "A1", features[0].Attrs["road_id"])
}

func TestReadPolygon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admin.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("ADMIN_CODE", 10)}))

	ring := shp.Polygon{
		NumParts:  1,
		NumPoints: 5,
		Parts:     []int32{0},
		Points: []shp.Point{
			{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0},
		},
	}
	w.Write(&ring)
	require.NoError(t, w.WriteAttribute(0, 0, "D01"))
	w.Close()

	features, skipped, err := Read(path)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, features, 1)

	mp, ok := features[0].Geom.(*geom.MultiPolygon)
	require.True(t, ok)
	require.Equal(t, 1, mp.NumPolygons())
	assert.Equal(t, "D01", features[0].Attrs["admin_code"])
}

func TestReadMissingFile(t *testing.T) {
	_, _, err := Read(filepath.Join(t.TempDir(), "absent.shp"))
	require.Error(t, err)
}
