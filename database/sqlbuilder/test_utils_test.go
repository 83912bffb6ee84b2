package sqlbuilder

var personId = IntColumn("id", NotNullable)
var personFirstName = StrColumn("first_name", NotNullable)
var personLastName = StrColumn("last_name", Nullable)
var personBirthDate = DateTimeColumn("birth_date", Nullable)
var personEmployed = BoolColumn("employed", NotNullable)
var personOccupation = StrColumn("occupation", Nullable)
var personAddressId = IntColumn("address_id", Nullable)
var person = NewTable(
	"person",
	personId,
	personFirstName,
	personLastName,
	personBirthDate,
	personEmployed,
	personOccupation,
	personAddressId)

var addressId = IntColumn("id", NotNullable)
var addressStreet = StrColumn("street", NotNullable)
var addressCity = StrColumn("city", NotNullable)
var addressBalance = DecimalColumn("balance", 10, 2, Nullable)
var address = NewTable(
	"address",
	addressId,
	addressStreet,
	addressCity,
	addressBalance)

// Columns of a table with single letter names, used by the criteria tests.
var colA = IntColumn("A", Nullable)
var colB = IntColumn("B", Nullable)
var colC = StrColumn("C", Nullable)
var letters = NewTable("letters", colA, colB, colC)
