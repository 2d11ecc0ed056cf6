package vision

import "fmt"

// Arch описывает бэкбон: выходы трёх слоёв и размерность эмбеддинга после отбора каналов.
type Arch struct {
	Name     string
	Layers   [3]string // имена выходов layer1..layer3 в экспортированной сети
	Channels [3]int
	Dim      int // число каналов, отбираемых ChannelIndex
}

// TotalChannels — число каналов склеенного эмбеддинга до отбора.
func (a Arch) TotalChannels() int {
	return a.Channels[0] + a.Channels[1] + a.Channels[2]
}

var archs = map[string]Arch{
	"resnet18": {
		Name:     "resnet18",
		Layers:   [3]string{"layer1", "layer2", "layer3"},
		Channels: [3]int{64, 128, 256},
		Dim:      100,
	},
	"wide_resnet50_2": {
		Name:     "wide_resnet50_2",
		Layers:   [3]string{"layer1", "layer2", "layer3"},
		Channels: [3]int{256, 512, 1024},
		Dim:      550,
	},
}

// LookupArch возвращает пресет по имени.
func LookupArch(name string) (Arch, error) {
	a, ok := archs[name]
	if !ok {
		return Arch{}, fmt.Errorf("%w: %q", ErrUnknownArch, name)
	}
	return a, nil
}

// WithLayers подменяет имена выходов, если сеть экспортирована с другими именами.
// Пустые имена оставляют значения пресета.
func (a Arch) WithLayers(layers []string) (Arch, error) {
	if len(layers) == 0 {
		return a, nil
	}
	if len(layers) != 3 {
		return Arch{}, fmt.Errorf("expected 3 tap layers, got %d", len(layers))
	}
	for i, l := range layers {
		if l != "" {
			a.Layers[i] = l
		}
	}
	return a, nil
}
