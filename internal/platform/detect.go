package platform

import (
	"bufio"
	"os"
	"os/exec"
	"strings"
)

// Detector probes the host OS, version, kernel, and architecture.
type Detector struct {
	osReleasePath string
	releaseFiles  []releaseFile
	run           func(name string, args ...string) (string, error)
}

type releaseFile struct {
	path   string
	family DistroFamily
}

// NewDetector returns a Detector reading the real host.
func NewDetector() *Detector {
	return &Detector{
		osReleasePath: "/etc/os-release",
		releaseFiles: []releaseFile{
			{"/etc/redhat-release", FamilyEnterprise},
			{"/etc/centos-release", FamilyEnterprise},
			{"/etc/system-release", FamilyAmazon},
			{"/etc/debian_version", FamilyDebian},
			{"/etc/SuSE-release", FamilySUSE},
		},
		run: runCommand,
	}
}

// Detect returns the host profile. It fails with *UnknownDistroError when
// neither /etc/os-release nor a known release file identifies the distro.
func (d *Detector) Detect() (Profile, error) {
	p := Profile{Family: FamilyUnknown}

	if family, version, ok := d.parseOSRelease(); ok {
		p.Family = family
		p.OSVersion = version
	} else if family, ok := d.probeReleaseFiles(); ok {
		p.Family = family
	}

	if p.Family == FamilyUnknown {
		return Profile{}, &UnknownDistroError{Reason: "no /etc/os-release and no known release file found"}
	}

	kernel, err := d.run("uname", "-r")
	if err != nil {
		return Profile{}, &UnknownDistroError{Reason: "uname -r failed: " + err.Error()}
	}
	p.Kernel = strings.TrimSpace(kernel)

	arch, err := d.run("uname", "-m")
	if err != nil {
		return Profile{}, &UnknownDistroError{Reason: "uname -m failed: " + err.Error()}
	}
	p.Arch = Arch(strings.TrimSpace(arch))

	return p, nil
}

// familyForID maps an os-release ID (plus ID_LIKE hints) to a distro family.
func familyForID(id string, idLike string) DistroFamily {
	switch id {
	case "ubuntu", "debian":
		return FamilyDebian
	case "amzn":
		return FamilyAmazon
	case "rhel", "centos", "rocky", "almalinux", "ol":
		return FamilyEnterprise
	case "sles", "sled", "opensuse-leap":
		return FamilySUSE
	}

	for _, like := range strings.Fields(idLike) {
		if f := familyForID(like, ""); f != FamilyUnknown {
			return f
		}
	}
	return FamilyUnknown
}

func (d *Detector) parseOSRelease() (DistroFamily, string, bool) {
	f, err := os.Open(d.osReleasePath)
	if err != nil {
		return FamilyUnknown, "", false
	}
	defer f.Close()

	var id, idLike, version string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "ID="):
			id = strings.Trim(strings.TrimPrefix(line, "ID="), `"`)
		case strings.HasPrefix(line, "ID_LIKE="):
			idLike = strings.Trim(strings.TrimPrefix(line, "ID_LIKE="), `"`)
		case strings.HasPrefix(line, "VERSION_ID="):
			version = strings.Trim(strings.TrimPrefix(line, "VERSION_ID="), `"`)
		}
	}

	family := familyForID(id, idLike)
	if family == FamilyUnknown {
		return FamilyUnknown, "", false
	}
	return family, version, true
}

func (d *Detector) probeReleaseFiles() (DistroFamily, bool) {
	for _, rf := range d.releaseFiles {
		if _, err := os.Stat(rf.path); err == nil {
			return rf.family, true
		}
	}
	return FamilyUnknown, false
}

func runCommand(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).Output()
	return string(out), err
}
