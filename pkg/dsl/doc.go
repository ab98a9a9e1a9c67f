/*
Package dsl provides a fluent builder for automation graphs.

It is used to define automations in Go code instead of editor JSON, mostly for
tests, examples and seeding stores.

Example usage:

	b := dsl.New("welcome")

	b.Start("start").Then("greet")
	b.Action("greet", "Welcome aboard!").Then("wait")
	b.Delay("wait", dsl.After(2, domain.UnitDays)).Then("check")
	b.Condition("check", dsl.Email(domain.OpEndsWith, "@acme.com")).
		True("vip").
		False("end")
	b.Action("vip", "Your account manager will reach out.").Then("end")
	b.End("end")

	store, err := b.Store()
	// ... pass store to automaton.New(...)
*/
package dsl
