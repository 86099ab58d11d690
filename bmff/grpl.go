package bmff

import (
	"github.com/heifbox/heifbox/bitio"
	"github.com/heifbox/heifbox/fourcc"
)

// EntityToGroupBox is "altr" (or any other EntityToGroupBox subtype):
// a named, typed group of items/tracks treated as alternatives or as a
// logical unit (supplemented feature, design notes §9/§D).
type EntityToGroupBox struct {
	FullBox
	GroupType fourcc.Code
	GroupID   uint32
	EntityIDs []uint32
}

func (b *EntityToGroupBox) Size() int64 { return 0 }

func ParseEntityToGroupBox(c *bitio.Cursor, groupType fourcc.Code) (*EntityToGroupBox, error) {
	fb, err := ParseFullHeader(c, groupType)
	if err != nil {
		return nil, err
	}
	b := &EntityToGroupBox{FullBox: *fb, GroupType: groupType}
	if b.GroupID, err = c.ReadU32(); err != nil {
		return nil, err
	}
	count, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		id, err := c.ReadU32()
		if err != nil {
			return nil, err
		}
		b.EntityIDs = append(b.EntityIDs, id)
	}
	return b, nil
}

func (b *EntityToGroupBox) Write(c *bitio.Cursor) error {
	h, err := WriteFullHeader(c, b.GroupType, b.Version, b.Flags)
	if err != nil {
		return err
	}
	if err := c.WriteU32(b.GroupID); err != nil {
		return err
	}
	if err := c.WriteU32(uint32(len(b.EntityIDs))); err != nil {
		return err
	}
	for _, id := range b.EntityIDs {
		if err := c.WriteU32(id); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}

// GroupsListBox is "grpl": a container of EntityToGroupBox children, each
// identified by its own box type rather than a shared "entity group" type
// (supplemented feature, design notes §9/§D).
type GroupsListBox struct {
	Header
	Groups []*EntityToGroupBox
}

func (b *GroupsListBox) Size() int64 { return 0 }

func ParseGroupsListBox(c *bitio.Cursor) (*GroupsListBox, error) {
	gl := &GroupsListBox{Header: Header{boxType: fourcc.New("grpl")}}
	children, err := ContainerParse(c)
	if err != nil {
		return gl, err
	}
	for _, ch := range children {
		grp, err := ParseEntityToGroupBox(ch.Body, ch.Type)
		if err != nil {
			return gl, err
		}
		gl.Groups = append(gl.Groups, grp)
	}
	return gl, nil
}

func (b *GroupsListBox) Write(c *bitio.Cursor) error {
	h, err := WriteHeader(c, fourcc.New("grpl"))
	if err != nil {
		return err
	}
	for _, g := range b.Groups {
		if err := g.Write(c); err != nil {
			return err
		}
	}
	return h.UpdateSize(c)
}
