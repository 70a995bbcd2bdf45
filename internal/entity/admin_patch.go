package entity

// AdminField enumerates the only lead fields an operator may change.
type AdminField int

const (
	FieldStatus AdminField = iota
	FieldTags
	FieldAdminNotes
)

func (f AdminField) String() string {
	switch f {
	case FieldStatus:
		return "status"
	case FieldTags:
		return "tags"
	case FieldAdminNotes:
		return "adminNotes"
	}
	return "unknown"
}

// AdminPatch is a partial update of the administrative fields. A nil field is
// left untouched by the store.
type AdminPatch struct {
	Status     *Status
	Tags       *[]string
	AdminNotes *string
}

func (p AdminPatch) WithStatus(s Status) AdminPatch {
	p.Status = &s
	return p
}

func (p AdminPatch) WithTags(tags []string) AdminPatch {
	cp := append([]string{}, tags...)
	p.Tags = &cp
	return p
}

func (p AdminPatch) WithAdminNotes(notes string) AdminPatch {
	p.AdminNotes = &notes
	return p
}

// Fields lists the fields set on the patch, in declaration order.
func (p AdminPatch) Fields() []AdminField {
	var fields []AdminField
	if p.Status != nil {
		fields = append(fields, FieldStatus)
	}
	if p.Tags != nil {
		fields = append(fields, FieldTags)
	}
	if p.AdminNotes != nil {
		fields = append(fields, FieldAdminNotes)
	}
	return fields
}

func (p AdminPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Apply merges the patch into the lead in place.
func (p AdminPatch) Apply(l *Lead) {
	if p.Status != nil {
		l.Status = *p.Status
	}
	if p.Tags != nil {
		l.Tags = append([]string{}, (*p.Tags)...)
	}
	if p.AdminNotes != nil {
		l.AdminNotes = *p.AdminNotes
	}
}
