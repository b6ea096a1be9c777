package clusters

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Column names for the last output column
const (
	SubclusterRepColumn = "subcluster_rep"
	OldRepColumn        = "old_rep"
)

// WriteSuperclusters writes one row per member:
// cluster_rep, cluster_member, cluster_ID, cluster_count, and the base
// cluster representative under lastColumn.
func WriteSuperclusters(w io.Writer, scs []Supercluster, set *Set, lastColumn string) error {
	bw := bufio.NewWriter(w)

	header := []string{RepField, MemberField, "cluster_ID", "cluster_count", lastColumn}
	if _, err := fmt.Fprintln(bw, strings.Join(header, "\t")); err != nil {
		return err
	}

	observed := 0
	for _, sc := range scs {
		for _, rep := range sc.Reps {
			c, ok := set.Get(rep)
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownCluster, rep)
			}
			for _, member := range c.MemberNames() {
				if _, err := fmt.Fprintf(bw, "%s\t%s\t%d\t%d\t%s\n",
					sc.LargestSubclusterRep, member, sc.ID, sc.TotalMemberCount, rep); err != nil {
					return err
				}
				observed++
			}
		}
	}

	if observed != set.TotalMembers() {
		return fmt.Errorf("%w: wrote %d members, cluster file has %d", ErrMemberCountMismatch, observed, set.TotalMembers())
	}
	return bw.Flush()
}

// WriteSuperclustersFile writes the superclusters to path, creating parent
// directories as needed.
func WriteSuperclustersFile(path string, scs []Supercluster, set *Set, lastColumn string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if err := WriteSuperclusters(file, scs, set, lastColumn); err != nil {
		return fmt.Errorf("failed to write superclusters: %w", err)
	}
	return file.Close()
}
