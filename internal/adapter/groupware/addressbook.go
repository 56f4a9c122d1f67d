package groupware

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/emersion/go-vcard"
)

// ContactInput holds the fields accepted by CreateContact.
type ContactInput struct {
	FullName string
	Email    string
	Phone    string
	Company  string
	Address  string
	Notes    string
}

// Contact is a flattened vCard.
type Contact struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Organization string `json:"organization"`
	Address      string `json:"address"`
}

const propfindAddressData = `<?xml version="1.0" encoding="UTF-8"?>
<propfind xmlns="DAV:" xmlns:card="urn:ietf:params:xml:ns:carddav">
    <prop>
        <getetag/>
        <card:address-data/>
    </prop>
</propfind>`

// ContactPayload builds the flat JSON document the addressbook REST API
// expects. The full name is split at the first space into given name and
// surname.
func ContactPayload(in ContactInput) map[string]string {
	given, surname := in.FullName, ""
	if parts := strings.Fields(in.FullName); len(parts) > 1 {
		given, surname = parts[0], strings.Join(parts[1:], " ")
	}

	payload := map[string]string{
		"fullName":     in.FullName,
		"name/given":   given,
		"name/surname": surname,
		"emails/work":  in.Email,
	}
	if in.Company != "" {
		payload["organizations/org/name"] = in.Company
	}
	if in.Phone != "" {
		payload["phones/tel_work"] = in.Phone
	}
	if in.Address != "" {
		payload["addresses/work/street"] = in.Address
	}
	if in.Notes != "" {
		payload["notes/note"] = in.Notes
	}
	return payload
}

// CreateContact adds a contact and returns the payload that was sent.
func (c *Client) CreateContact(ctx context.Context, in ContactInput) (map[string]string, error) {
	payload := ContactPayload(in)
	if _, err := c.postJSON(ctx, c.baseURL+"/addressbook/", payload, nil); err != nil {
		return nil, err
	}
	return payload, nil
}

type multistatus struct {
	Responses []struct {
		Href      string `xml:"DAV: href"`
		Propstats []struct {
			Prop struct {
				AddressData string `xml:"urn:ietf:params:xml:ns:carddav address-data"`
			} `xml:"DAV: prop"`
		} `xml:"DAV: propstat"`
	} `xml:"DAV: response"`
}

// ListContacts fetches every vCard of the user's address book with a CardDAV
// PROPFIND. Cards that fail to parse are skipped.
func (c *Client) ListContacts(ctx context.Context) ([]Contact, error) {
	req, err := c.newRequest(ctx, "PROPFIND", c.baseURL+"/addressbook/", strings.NewReader(propfindAddressData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("Depth", "1")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var ms multistatus
	if err := xml.Unmarshal(body, &ms); err != nil {
		return nil, fmt.Errorf("failed to parse PROPFIND response: %w", err)
	}

	var contacts []Contact
	for _, r := range ms.Responses {
		for _, ps := range r.Propstats {
			data := strings.TrimSpace(ps.Prop.AddressData)
			if data == "" {
				continue
			}
			contact, err := parseVCard(data)
			if err != nil {
				continue
			}
			contacts = append(contacts, contact)
		}
	}
	return contacts, nil
}

func parseVCard(data string) (Contact, error) {
	card, err := vcard.NewDecoder(strings.NewReader(data)).Decode()
	if err != nil {
		return Contact{}, err
	}

	contact := Contact{
		Name:  card.PreferredValue(vcard.FieldFormattedName),
		Email: card.PreferredValue(vcard.FieldEmail),
		Phone: card.PreferredValue(vcard.FieldTelephone),
	}
	if org := card.PreferredValue(vcard.FieldOrganization); org != "" {
		contact.Organization = strings.SplitN(org, ";", 2)[0]
	}
	if addr := card.Address(); addr != nil {
		contact.Address = addr.StreetAddress + ", " + addr.Locality
	}
	return contact, nil
}

// Matches reports whether query occurs, case-insensitively, in any field.
func (c Contact) Matches(query string) bool {
	var fields []string
	for _, f := range []string{c.Name, c.Email, c.Phone, c.Organization, c.Address} {
		if f != "" {
			fields = append(fields, f)
		}
	}
	return strings.Contains(strings.ToLower(strings.Join(fields, " ")), strings.ToLower(query))
}
