package enrich

import (
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/apollo"
)

// ContactFromPerson maps an Apollo person record onto the domain contact
// shape, with defined defaults for every optional field: the name is the
// provided full name or first+last joined with a single space, the phone is
// the first phone record's raw form or empty, and the organization name
// falls back to the nested organization reference.
func ContactFromPerson(p apollo.Person) model.Contact {
	c := model.Contact{
		ID:               p.ID,
		Name:             p.DisplayName(),
		Email:            p.Email,
		Title:            p.Title,
		LinkedInURL:      p.LinkedInURL,
		OrganizationName: p.OrgName(),
	}
	if len(p.PhoneNumbers) > 0 {
		c.Phone = p.PhoneNumbers[0].RawNumber
	}
	return c
}

// ContactsFromPeople maps a sequence of person records, preserving order.
// The result is never nil so it serializes as [] rather than null.
func ContactsFromPeople(people []apollo.Person) []model.Contact {
	contacts := make([]model.Contact, len(people))
	for i, p := range people {
		contacts[i] = ContactFromPerson(p)
	}
	return contacts
}
