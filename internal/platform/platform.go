// Package platform probes the host and classifies it into the distro
// families the installer knows how to provision.
package platform

import "fmt"

// DistroFamily is the normalized OS lineage.
type DistroFamily string

const (
	FamilyDebian     DistroFamily = "debian"
	FamilyAmazon     DistroFamily = "amazon"
	FamilyEnterprise DistroFamily = "enterprise-linux"
	FamilySUSE       DistroFamily = "suse"
	FamilyUnknown    DistroFamily = "unknown"
)

// Arch is the CPU architecture as reported by uname -m.
type Arch string

const (
	ArchX86_64  Arch = "x86_64"
	ArchAarch64 Arch = "aarch64"
)

// Profile describes the probed host. Built once per run, read-only after.
type Profile struct {
	Family    DistroFamily
	OSVersion string // dotted, possibly partial: "8", "8.7", "22.04"
	Kernel    string // uname -r, platform-specific suffix included
	Arch      Arch
}

func (p Profile) String() string {
	return fmt.Sprintf("%s %s (kernel %s, %s)", p.Family, p.OSVersion, p.Kernel, p.Arch)
}

// UnknownDistroError reports a host that could not be classified. Fatal:
// without a profile the compatibility table cannot be consulted.
type UnknownDistroError struct {
	Reason string
}

func (e *UnknownDistroError) Error() string {
	return fmt.Sprintf("unable to determine the host distribution: %s", e.Reason)
}
