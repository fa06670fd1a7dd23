package lighting

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/midgard-shadows/pkg/math"
)

func TestSunDirection(t *testing.T) {
	tests := []struct {
		name     string
		lon, lat float32
		want     math.Vec3
	}{
		{"zenith", 0, 90, math.Vec3{Y: 1}},
		{"horizon south", 0, 0, math.Vec3{Z: 1}},
		{"horizon east", 90, 0, math.Vec3{X: 1}},
		{"diagonal", 0, 45, math.Vec3{Y: math32.Sqrt(0.5), Z: math32.Sqrt(0.5)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SunDirection(tt.lon, tt.lat)
			assert.True(t, got.ApproxEqual(tt.want, 1e-5), "got %+v", got)
			assert.InDelta(t, 1, got.Length(), 1e-5)
		})
	}
}

func TestDirectionalLightDefaultsDown(t *testing.T) {
	l := NewDirectionalLight()
	assert.True(t, l.Direction().ApproxEqual(math.Vec3{Y: -1}, 1e-5))
}

func TestSetSunPointsAwayFromSun(t *testing.T) {
	l := NewDirectionalLight()
	l.SetSun(45, 50)

	want := SunDirection(45, 50).Negate()
	assert.True(t, l.Direction().ApproxEqual(want, 1e-5))
}

func TestSetDirectionIgnoresZero(t *testing.T) {
	l := NewSpotLight(0.5)
	l.SetDirection(math.Vec3{X: 1})
	l.SetDirection(math.Vec3Zero)

	assert.True(t, l.Direction().ApproxEqual(math.Vec3{X: 1}, 1e-5))
}

func TestSetDirectionFromOffsetPosition(t *testing.T) {
	l := NewSpotLight(0.5)
	l.SetPosition(math.Vec3{X: 5, Y: 10})
	l.SetDirection(math.Vec3{X: 0, Y: -1, Z: 1})

	assert.True(t, l.Direction().ApproxEqual(math.Vec3{Y: -1, Z: 1}.Normalize(), 1e-5))
}

func TestPackPointLights(t *testing.T) {
	lights := make([]*PointLight, MaxPointLights+4)
	for i := range lights {
		lights[i] = NewPointLight(10)
		lights[i].SetPosition(math.Vec3{X: float32(i)})
	}

	packed := PackPointLights(lights)

	assert.Len(t, packed, MaxPointLights)
	assert.Equal(t, [3]float32{3, 0, 0}, packed[3].Position)
	assert.Equal(t, float32(10), packed[3].Range)
	assert.Equal(t, [3]float32{1, 1, 1}, packed[3].Color)
}
