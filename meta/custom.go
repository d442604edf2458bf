package meta

// Custom property round tripping. Every object in a META.json document may
// carry producer extensions under keys beginning with x_ or X_. The types
// in this package hold them apart from their declared fields, in a Custom
// map excluded from plain struct marshaling, so each type splices them
// back in when serialized and collects them when decoded.

import (
	"encoding/json"
	"strings"
)

// customProps collects the x_ and X_ properties from a raw JSON object.
// Returns nil when the object carries none.
func customProps(data []byte) map[string]interface{} {
	var raw map[string]interface{}
	if json.Unmarshal(data, &raw) != nil {
		return nil
	}
	var props map[string]interface{}
	for k, v := range raw {
		if strings.HasPrefix(k, "x_") || strings.HasPrefix(k, "X_") {
			if props == nil {
				props = make(map[string]interface{})
			}
			props[k] = v
		}
	}
	return props
}

// withCustomProps marshals v and splices props into the resulting object.
func withCustomProps(v interface{}, props map[string]interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(props) == 0 {
		return data, err
	}
	obj := make(map[string]interface{}, len(props)+8)
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	for k, v := range props {
		obj[k] = v
	}
	return json.Marshal(obj)
}

func (s *Spec) UnmarshalJSON(data []byte) error {
	type plain Spec
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	v.Custom = customProps(data)
	*s = Spec(v)
	return nil
}

func (s Spec) MarshalJSON() ([]byte, error) {
	type plain Spec
	return withCustomProps(plain(s), s.Custom)
}

func (m *Maintainer) UnmarshalJSON(data []byte) error {
	type plain Maintainer
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	v.Custom = customProps(data)
	*m = Maintainer(v)
	return nil
}

func (m Maintainer) MarshalJSON() ([]byte, error) {
	type plain Maintainer
	return withCustomProps(plain(m), m.Custom)
}

func (e *Extension) UnmarshalJSON(data []byte) error {
	type plain Extension
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	v.Custom = customProps(data)
	*e = Extension(v)
	return nil
}

func (e Extension) MarshalJSON() ([]byte, error) {
	type plain Extension
	return withCustomProps(plain(e), e.Custom)
}

func (m *Module) UnmarshalJSON(data []byte) error {
	type plain Module
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	v.Custom = customProps(data)
	*m = Module(v)
	return nil
}

func (m Module) MarshalJSON() ([]byte, error) {
	type plain Module
	return withCustomProps(plain(m), m.Custom)
}

func (a *App) UnmarshalJSON(data []byte) error {
	type plain App
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	v.Custom = customProps(data)
	*a = App(v)
	return nil
}

func (a App) MarshalJSON() ([]byte, error) {
	type plain App
	return withCustomProps(plain(a), a.Custom)
}

func (c *Contents) UnmarshalJSON(data []byte) error {
	type plain Contents
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	v.Custom = customProps(data)
	*c = Contents(v)
	return nil
}

func (c Contents) MarshalJSON() ([]byte, error) {
	type plain Contents
	return withCustomProps(plain(c), c.Custom)
}

func (c *Classifications) UnmarshalJSON(data []byte) error {
	type plain Classifications
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	v.Custom = customProps(data)
	*c = Classifications(v)
	return nil
}

func (c Classifications) MarshalJSON() ([]byte, error) {
	type plain Classifications
	return withCustomProps(plain(c), c.Custom)
}

func (b *Badge) UnmarshalJSON(data []byte) error {
	type plain Badge
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	v.Custom = customProps(data)
	*b = Badge(v)
	return nil
}

func (b Badge) MarshalJSON() ([]byte, error) {
	type plain Badge
	return withCustomProps(plain(b), b.Custom)
}

func (r *Resources) UnmarshalJSON(data []byte) error {
	type plain Resources
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	v.Custom = customProps(data)
	*r = Resources(v)
	return nil
}

func (r Resources) MarshalJSON() ([]byte, error) {
	type plain Resources
	return withCustomProps(plain(r), r.Custom)
}

func (a *Artifact) UnmarshalJSON(data []byte) error {
	type plain Artifact
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	v.Custom = customProps(data)
	*a = Artifact(v)
	return nil
}

func (a Artifact) MarshalJSON() ([]byte, error) {
	type plain Artifact
	return withCustomProps(plain(a), a.Custom)
}

func (p *Postgres) UnmarshalJSON(data []byte) error {
	type plain Postgres
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	v.Custom = customProps(data)
	*p = Postgres(v)
	return nil
}

func (p Postgres) MarshalJSON() ([]byte, error) {
	type plain Postgres
	return withCustomProps(plain(p), p.Custom)
}

func (p *Phase) UnmarshalJSON(data []byte) error {
	type plain Phase
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	v.Custom = customProps(data)
	*p = Phase(v)
	return nil
}

func (p Phase) MarshalJSON() ([]byte, error) {
	type plain Phase
	return withCustomProps(plain(p), p.Custom)
}

func (p *Packages) UnmarshalJSON(data []byte) error {
	type plain Packages
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	v.Custom = customProps(data)
	*p = Packages(v)
	return nil
}

func (p Packages) MarshalJSON() ([]byte, error) {
	type plain Packages
	return withCustomProps(plain(p), p.Custom)
}

func (v *Variation) UnmarshalJSON(data []byte) error {
	type plain Variation
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	p.Custom = customProps(data)
	*v = Variation(p)
	return nil
}

func (v Variation) MarshalJSON() ([]byte, error) {
	type plain Variation
	return withCustomProps(plain(v), v.Custom)
}

func (d *Dependencies) UnmarshalJSON(data []byte) error {
	type plain Dependencies
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	v.Custom = customProps(data)
	*d = Dependencies(v)
	return nil
}

func (d Dependencies) MarshalJSON() ([]byte, error) {
	type plain Dependencies
	return withCustomProps(plain(d), d.Custom)
}

func (d *Distribution) UnmarshalJSON(data []byte) error {
	type plain Distribution
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	v.Custom = customProps(data)
	*d = Distribution(v)
	return nil
}

func (d Distribution) MarshalJSON() ([]byte, error) {
	type plain Distribution
	return withCustomProps(plain(d), d.Custom)
}
