// SPDX-License-Identifier: MPL-2.0

package activate

type multiLoader []Loader

// Multi returns a Loader that adds each artifact to every loader in order,
// stopping at the first failure.
func Multi(loaders ...Loader) Loader {
	return multiLoader(loaders)
}

func (m multiLoader) AddArtifact(path string) error {
	for _, l := range m {
		if err := l.AddArtifact(path); err != nil {
			return err
		}
	}
	return nil
}
