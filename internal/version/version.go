// ABOUTME: Version information for lubdub binaries
// ABOUTME: Reported in logs, -version output and server/hello names
package version

const (
	// Version is the current release
	Version = "0.1.0"

	// Product is the product name
	Product = "lubdub"

	// Manufacturer is the project owner
	Manufacturer = "harperreed"
)

// String returns "product version"
func String() string {
	return Product + " " + Version
}
