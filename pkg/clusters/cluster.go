package clusters

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

const (
	RepField    = "cluster_rep"
	MemberField = "cluster_member"
)

var (
	ErrDuplicateMember     = errors.New("clusters: member belongs to more than one cluster")
	ErrFieldCount          = errors.New("clusters: field count mismatch")
	ErrMissingField        = errors.New("clusters: required field missing")
	ErrMissingHeader       = errors.New("clusters: no fields given and no header line")
	ErrUnknownCluster      = errors.New("clusters: unknown cluster representative")
	ErrMisplacedCluster    = errors.New("clusters: cluster not in exactly one supercluster")
	ErrMemberCountMismatch = errors.New("clusters: member count mismatch")
)

// Member is one row of a cluster file. Extra holds every column other than
// the representative and member names.
type Member struct {
	Name  string
	Extra map[string]string
}

// Cluster is a representative and the members it owns.
type Cluster struct {
	Rep     string
	Members []Member // file order

	index map[string]struct{}
}

// Size returns the number of members.
func (c *Cluster) Size() int { return len(c.Members) }

// Contains reports whether name is a member of the cluster.
func (c *Cluster) Contains(name string) bool {
	_, ok := c.index[name]
	return ok
}

// MemberNames returns the member names in ascending order.
func (c *Cluster) MemberNames() []string {
	names := make([]string, len(c.Members))
	for i, m := range c.Members {
		names[i] = m.Name
	}
	sort.Strings(names)
	return names
}

// Set is a collection of base clusters with exclusive membership.
type Set struct {
	Fields []string // column names of the source file, if parsed

	clusters    map[string]*Cluster
	memberToRep map[string]string
	members     int
}

// NewSet creates an empty cluster set.
func NewSet() *Set {
	return &Set{
		clusters:    make(map[string]*Cluster),
		memberToRep: make(map[string]string),
	}
}

// Add records member as belonging to rep. A member may only be added once.
func (s *Set) Add(rep, member string, extra map[string]string) error {
	if current, ok := s.memberToRep[member]; ok {
		return fmt.Errorf("%w: %s is in %s and %s", ErrDuplicateMember, member, current, rep)
	}

	c, ok := s.clusters[rep]
	if !ok {
		c = &Cluster{Rep: rep, index: make(map[string]struct{})}
		s.clusters[rep] = c
	}
	c.Members = append(c.Members, Member{Name: member, Extra: extra})
	c.index[member] = struct{}{}
	s.memberToRep[member] = rep
	s.members++
	return nil
}

// Get returns the cluster with representative rep.
func (s *Set) Get(rep string) (*Cluster, bool) {
	c, ok := s.clusters[rep]
	return c, ok
}

// RepOf returns the representative of the cluster containing member.
func (s *Set) RepOf(member string) (string, bool) {
	rep, ok := s.memberToRep[member]
	return rep, ok
}

// Reps returns every representative in ascending order.
func (s *Set) Reps() []string {
	reps := make([]string, 0, len(s.clusters))
	for rep := range s.clusters {
		reps = append(reps, rep)
	}
	sort.Strings(reps)
	return reps
}

// Len returns the number of clusters.
func (s *Set) Len() int { return len(s.clusters) }

// TotalMembers returns the number of members across all clusters.
func (s *Set) TotalMembers() int { return s.members }

// ParseFile reads a cluster file. See Parse.
func ParseFile(path string, fields []string) (*Set, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cluster file: %w", err)
	}
	defer file.Close()

	set, err := Parse(file, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return set, nil
}

// Parse reads a tab separated cluster file. With no fields the first line
// must be a header starting with cluster_rep. Later header lines are skipped.
func Parse(r io.Reader, fields []string) (*Set, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	lineNum := 0
	if len(fields) == 0 {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, err
			}
			return nil, ErrMissingHeader
		}
		lineNum++
		header := scanner.Text()
		if !strings.HasPrefix(header, RepField) {
			return nil, fmt.Errorf("%w: first line is %q", ErrMissingHeader, header)
		}
		fields = strings.Split(header, "\t")
	}

	repIdx, memberIdx := -1, -1
	for i, f := range fields {
		switch f {
		case RepField:
			repIdx = i
		case MemberField:
			memberIdx = i
		}
	}
	if repIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, RepField)
	}
	if memberIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, MemberField)
	}

	set := NewSet()
	set.Fields = fields

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, RepField) {
			continue
		}

		values := strings.Split(line, "\t")
		if len(values) != len(fields) {
			return nil, fmt.Errorf("%w: line %d has %d fields, expected %d", ErrFieldCount, lineNum, len(values), len(fields))
		}

		var extra map[string]string
		for i, v := range values {
			if i == repIdx || i == memberIdx {
				continue
			}
			if extra == nil {
				extra = make(map[string]string, len(fields)-2)
			}
			extra[fields[i]] = v
		}

		if err := set.Add(values[repIdx], values[memberIdx], extra); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cluster file: %w", err)
	}

	return set, nil
}
