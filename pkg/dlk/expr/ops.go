package expr

// Handle is an interned expression or entity. Zero is never a valid handle.
type Handle uint32

// Invalid is the zero handle.
const Invalid Handle = 0

// Sentinels registered by every Registry at fixed positions.
const (
	Top Handle = iota + 1
	Bottom
	TopObjectRole
	BottomObjectRole
	TopDataRole
	BottomDataRole
	TopDatatype
	firstFree
)

// Well-known IRIs of the sentinels.
const (
	IRIThing                = "owl:Thing"
	IRINothing              = "owl:Nothing"
	IRITopObjectProperty    = "owl:topObjectProperty"
	IRIBottomObjectProperty = "owl:bottomObjectProperty"
	IRITopDataProperty      = "owl:topDataProperty"
	IRIBottomDataProperty   = "owl:bottomDataProperty"
	IRILiteral              = "rdfs:Literal"
)

// Sort is the syntactic category of a handle.
type Sort uint8

const (
	SortInvalid Sort = iota
	SortConcept
	SortObjectRole
	SortDataRole
	SortIndividual
	SortDataRange
	SortLiteral
	SortRoleChain
	SortFacet
)

func (s Sort) String() string {
	switch s {
	case SortConcept:
		return "concept"
	case SortObjectRole:
		return "object-role"
	case SortDataRole:
		return "data-role"
	case SortIndividual:
		return "individual"
	case SortDataRange:
		return "data-range"
	case SortLiteral:
		return "literal"
	case SortRoleChain:
		return "role-chain"
	case SortFacet:
		return "facet"
	default:
		return "invalid"
	}
}

// EntityKind names the kinds of registrable entities.
type EntityKind uint8

const (
	KindClass EntityKind = iota + 1
	KindObjectProperty
	KindDataProperty
	KindIndividual
	KindDatatype
)

func (k EntityKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindObjectProperty:
		return "object-property"
	case KindDataProperty:
		return "data-property"
	case KindIndividual:
		return "individual"
	case KindDatatype:
		return "datatype"
	default:
		return "unknown"
	}
}

// Op is the constructor of an expression node.
type Op uint8

const (
	OpInvalid Op = iota

	// concepts
	OpTop
	OpBottom
	OpClass
	OpNot
	OpAnd
	OpOr
	OpSome
	OpAll
	OpMin
	OpMax
	OpExact
	OpHasValue
	OpHasSelf
	OpOneOf
	OpDataSome
	OpDataAll
	OpDataMin
	OpDataMax
	OpDataExact
	OpDataHasValue

	// object roles
	OpObjectRole
	OpTopObjectRole
	OpBottomObjectRole
	OpInverse
	OpChain

	// data roles
	OpDataRole
	OpTopDataRole
	OpBottomDataRole

	OpIndividual

	// data ranges
	OpDatatype
	OpDataNot
	OpDataOneOf
	OpDataAnd
	OpDataOr
	OpRestriction
	OpFacet
	OpLiteral
)

var opNames = map[Op]string{
	OpTop:              "Top",
	OpBottom:           "Bottom",
	OpClass:            "Class",
	OpNot:              "Not",
	OpAnd:              "And",
	OpOr:               "Or",
	OpSome:             "Some",
	OpAll:              "All",
	OpMin:              "Min",
	OpMax:              "Max",
	OpExact:            "Exact",
	OpHasValue:         "HasValue",
	OpHasSelf:          "HasSelf",
	OpOneOf:            "OneOf",
	OpDataSome:         "DataSome",
	OpDataAll:          "DataAll",
	OpDataMin:          "DataMin",
	OpDataMax:          "DataMax",
	OpDataExact:        "DataExact",
	OpDataHasValue:     "DataHasValue",
	OpObjectRole:       "ObjectRole",
	OpTopObjectRole:    "TopObjectRole",
	OpBottomObjectRole: "BottomObjectRole",
	OpInverse:          "Inverse",
	OpChain:            "Chain",
	OpDataRole:         "DataRole",
	OpTopDataRole:      "TopDataRole",
	OpBottomDataRole:   "BottomDataRole",
	OpIndividual:       "Individual",
	OpDatatype:         "Datatype",
	OpDataNot:          "DataNot",
	OpDataOneOf:        "DataOneOf",
	OpDataAnd:          "DataAnd",
	OpDataOr:           "DataOr",
	OpRestriction:      "Restriction",
	OpFacet:            "Facet",
	OpLiteral:          "Literal",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return "Invalid"
}

// Nary reports whether op takes a variable-length operand list.
func (o Op) Nary() bool {
	switch o {
	case OpAnd, OpOr, OpOneOf, OpChain, OpDataOneOf, OpDataAnd, OpDataOr:
		return true
	}
	return false
}

// IsEntity reports whether op is a named entity leaf.
func (o Op) IsEntity() bool {
	switch o {
	case OpClass, OpObjectRole, OpDataRole, OpIndividual, OpDatatype:
		return true
	}
	return false
}
