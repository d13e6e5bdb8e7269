package plugin

// DefaultSuffix is the file name suffix of dynamic modules.
const DefaultSuffix = ".dll"

// scanCurrentDir tells whether the working directory is a default plugin
// directory.
const scanCurrentDir = false
