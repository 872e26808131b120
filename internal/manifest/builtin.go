// internal/manifest/builtin.go
package manifest

import "corpusx/internal/core/domain"

// librittsRBase is the OpenSLR resource hosting the LibriTTS-R release.
const librittsRBase = "http://us.openslr.org/resources/141/"

// librittsRSplits maps each split archive to its published md5 digest.
// The archives unpack into a LibriTTS_R wrapper directory.
var librittsRSplits = []struct {
	archive string
	subdir  string
	md5     string
}{
	{"dev_clean.tar.gz", "dev-clean", "2c1f5312914890634cc2d15783032ff3"},
	{"dev_other.tar.gz", "dev-other", "62d3a80ad8a282b6f31b3904f0507e4f"},
	{"test_clean.tar.gz", "test-clean", "4d373d453eb96c0691e598061bbafab7"},
	{"test_other.tar.gz", "test-other", "dbc0959d8bdb6d52200595cabc9995ae"},
	{"train_clean_100.tar.gz", "train-clean-100", "6df668d8f5f33e70876bfa33862ad02b"},
	{"train_clean_360.tar.gz", "train-clean-360", "382eb3e64394b3da6a559f864339b22c"},
	{"train_other_500.tar.gz", "train-other-500", "a37a8e9f4fe79d20601639bf23d1add8"},
}

// LibriTTSR returns the built-in descriptor set for the LibriTTS-R
// corpus, one descriptor per split, in canonical order. Used when no
// manifest file is given.
func LibriTTSR() []domain.Descriptor {
	out := make([]domain.Descriptor, 0, len(librittsRSplits))
	for _, split := range librittsRSplits {
		out = append(out, domain.Descriptor{
			ID:               "libritts-r-" + split.subdir,
			URL:              librittsRBase + split.archive,
			MD5:              split.md5,
			ExtractedSubpath: "LibriTTS_R/" + split.subdir,
			TargetParent:     "LibriTTS_R",
		})
	}
	return out
}
