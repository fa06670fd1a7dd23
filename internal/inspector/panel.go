package inspector

import (
	"fmt"

	"github.com/AllenDang/cimgui-go/imgui"

	"github.com/Faultbox/midgard-shadows/internal/engine/framebuffer"
)

func (in *Inspector) drawPanel() {
	imgui.SetNextWindowPos(imgui.NewVec2(10, 10))
	if imgui.BeginV("Shadows", nil, imgui.WindowFlagsAlwaysAutoResize|imgui.WindowFlagsNoMove) {
		in.drawSun()
		imgui.Separator()
		in.drawSettings()
		imgui.Separator()
		in.drawActions()
		imgui.Separator()
		in.drawCascades()
		in.drawMoments()
	}
	imgui.End()
}

func (in *Inspector) drawSun() {
	imgui.Text("Sun")
	changed := imgui.SliderFloatV("Longitude", &in.sun.Longitude, -180, 180, "%.0f", imgui.SliderFlagsNone)
	if imgui.SliderFloatV("Latitude", &in.sun.Latitude, 1, 90, "%.0f", imgui.SliderFlagsNone) {
		changed = true
	}
	if changed {
		in.world.SetSun(in.sun.Longitude, in.sun.Latitude)
	}
}

func (in *Inspector) drawSettings() {
	s := &in.settings

	imgui.Text("Maps")
	imgui.SliderFloatV("Bias", &s.Bias, 0, 0.01, "%.4f", imgui.SliderFlagsNone)
	imgui.SliderFloatV("Normal bias", &s.NormalBias, 0, 0.1, "%.3f", imgui.SliderFlagsNone)
	imgui.SliderFloatV("PCF radius", &s.Radius, 0, 8, "%.1f", imgui.SliderFlagsNone)
	resolution := int32(s.Resolution)
	if imgui.SliderIntV("Resolution", &resolution, 128, 4096, "%d", imgui.SliderFlagsNone) {
		s.Resolution = int(resolution)
	}

	imgui.Text("Cascades")
	cascades := int32(s.CSM.Cascades)
	if imgui.SliderIntV("Count", &cascades, 1, 4, "%d", imgui.SliderFlagsNone) {
		s.CSM.Cascades = int(cascades)
	}
	imgui.SliderFloatV("Max distance", &s.CSM.MaxDistance, 10, 500, "%.0f", imgui.SliderFlagsNone)
	imgui.SliderFloatV("Lambda", &s.CSM.Lambda, 0, 1, "%.2f", imgui.SliderFlagsNone)
	imgui.Checkbox("Blend", &s.CSM.Blend)
	imgui.SameLine()
	imgui.Checkbox("Stabilize", &s.CSM.Stabilize)

	imgui.Text("Variance")
	imgui.SliderFloatV("Bleeding", &s.VSM.LightBleedingReduction, 0, 0.95, "%.2f", imgui.SliderFlagsNone)
	blur := int32(s.VSM.BlurSize)
	if imgui.SliderIntV("Blur", &blur, 0, 8, "%d", imgui.SliderFlagsNone) {
		s.VSM.BlurSize = int(blur)
	}
	imgui.SliderFloatV("Sigma", &s.VSM.BlurSigma, 0.5, 4, "%.1f", imgui.SliderFlagsNone)
}

func (in *Inspector) drawActions() {
	if imgui.Button("Apply") {
		in.apply()
	}
	imgui.SameLine()
	if imgui.Button("Reset") {
		in.settings = in.shadows.Config()
		in.status = ""
	}
	imgui.SameLine()
	if imgui.Button("Save") {
		in.save()
	}
	imgui.SameLine()
	if imgui.Button("Dump...") {
		in.chooseDumpDir()
	}
	imgui.SameLine()
	imgui.Checkbox("Pause", &in.paused)

	if in.status != "" {
		imgui.TextDisabled(in.status)
	}
}

func (in *Inspector) drawCascades() {
	for i, c := range in.shadows.CSM.Cascades() {
		imgui.Text(fmt.Sprintf("Cascade %d: %.1f - %.1f", i, c.SplitNear, c.SplitFar))
	}
}

// drawMoments previews the blurred moments texture. Depth textures use
// comparison sampling and cannot be shown directly.
func (in *Inspector) drawMoments() {
	t, ok := in.shadows.VSM.Blurred().(*framebuffer.Target)
	if !ok || t.Disposed() {
		return
	}
	imgui.Text("Blurred moments")
	texRef := imgui.NewTextureRefTextureID(imgui.TextureID(t.Texture()))
	imgui.ImageWithBgV(
		*texRef,
		imgui.NewVec2(previewSize, previewSize),
		imgui.NewVec2(0, 1), // UV flipped
		imgui.NewVec2(1, 0),
		imgui.NewVec4(0.15, 0.15, 0.15, 1.0),
		imgui.NewVec4(1, 1, 1, 1),
	)
}
